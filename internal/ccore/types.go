// Package ccore holds the data model shared by every layer of the
// extraction core: Source, MimeType, ProcessorCapabilities,
// ProcessorResult, ExtractionResult, and the Segment/AssetRef value types
// engines assemble their output from. See spec.md §3.
package ccore

import (
	"strings"
)

// MimeType is an opaque normalized string. A wildcard form ("image/*")
// matches any specific type sharing the prefix.
type MimeType string

// IsWildcard reports whether m has the form "<type>/*".
func (m MimeType) IsWildcard() bool {
	return strings.HasSuffix(string(m), "/*")
}

// Matches reports whether m (a capability entry, possibly wildcard)
// covers the concrete MIME type other.
func (m MimeType) Matches(other MimeType) bool {
	if m == other {
		return true
	}
	if m.IsWildcard() {
		prefix := strings.TrimSuffix(string(m), "*")
		return strings.HasPrefix(string(other), prefix)
	}
	return false
}

func (m MimeType) String() string { return string(m) }

// Category is the coarse grouping used by category-level engine config
// and category-level registry lookups.
type Category string

const (
	CategoryDocuments Category = "documents"
	CategoryURLs      Category = "urls"
	CategoryAudio     Category = "audio"
	CategoryVideo     Category = "video"
	CategoryImages    Category = "images"
	CategoryText      Category = "text"
	CategoryYouTube   Category = "youtube"
)

// Source is an immutable extraction request. Exactly one of URL,
// FilePath, or RawContent is populated.
type Source struct {
	URL        string
	FilePath   string
	RawContent string

	// DeclaredMimeType overrides sniffing when the caller already knows
	// the type.
	DeclaredMimeType MimeType

	// OutputFormat is honored by document engines ("markdown" default,
	// "html", or "structured").
	OutputFormat string

	// Engine is an explicit caller override: a single engine name or an
	// ordered list. When set it replaces every other resolution source
	// (spec §4.2 step 1).
	Engine []string

	// Options is an opaque per-engine option map, keyed by engine name,
	// merged with (and taking precedence over) ExtractionConfig.EngineOptions.
	Options map[string]map[string]any

	// TimeoutSeconds overrides ExtractionConfig.TimeoutSeconds for this
	// call only, when > 0.
	TimeoutSeconds int

	// Audio overrides.
	AudioProvider    string
	AudioModel       string
	AudioConcurrency int
}

// Kind reports which origin is populated; exactly one is expected.
func (s Source) Kind() string {
	switch {
	case s.URL != "":
		return "url"
	case s.FilePath != "":
		return "file"
	default:
		return "raw"
	}
}

const OutputFormatMarkdown = "markdown"
const OutputFormatHTML = "html"
const OutputFormatStructured = "structured"

// ProcessorCapabilities declares what one registered engine can do.
type ProcessorCapabilities struct {
	Name         string
	MimeTypes    []MimeType
	Extensions   []string
	Priority     int // [0,100], higher preferred on ties
	RequiredDeps []string
	Category     Category
}

// HandlesMime reports whether any capability entry (exact or wildcard)
// covers mime.
func (c ProcessorCapabilities) HandlesMime(mime MimeType) bool {
	for _, m := range c.MimeTypes {
		if m.Matches(mime) {
			return true
		}
	}
	return false
}

// HandlesMimeExact reports only exact (non-wildcard) matches, used by the
// registry to prefer exact over wildcard candidates.
func (c ProcessorCapabilities) HandlesMimeExact(mime MimeType) bool {
	for _, m := range c.MimeTypes {
		if !m.IsWildcard() && m == mime {
			return true
		}
	}
	return false
}

func (c ProcessorCapabilities) HandlesExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.Extensions {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

// Segment is one unit of extracted text, optionally anchored to a page
// or a time range, carrying engine-specific metadata.
type Segment struct {
	Text       string
	Page       *int
	StartSec   *float64
	EndSec     *float64
	Confidence *float64
	SpeakerTag *int
	Metadata   map[string]any
}

// AssetRef points at a derived artifact (a rendered PDF page, an audio
// track, a video keyframe) produced as a side effect of extraction.
// ccore keeps no persisted state (spec §6 "Persisted state: None"), so
// AssetRef.URL/Key are meaningful only within the lifetime of one call
// when an engine chooses to surface a scoped temp path.
type AssetRef struct {
	Kind     string
	Key      string
	URL      string
	Metadata map[string]any
}

// ProcessorResult is what one engine's Extract call produces.
type ProcessorResult struct {
	Content  string
	MimeType MimeType
	Metadata map[string]any
	Warnings []string
}

// EnsureEngineStamp guarantees metadata.extraction_engine == engine,
// enforcing the invariant from spec §3 "A ProcessorResult produced by
// engine E always reports extraction_engine == E."
func (r *ProcessorResult) EnsureEngineStamp(engine string) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata["extraction_engine"] = engine
}

// ExtractionResult is the externally visible result of a whole Extract
// call (spec §3, §6).
type ExtractionResult struct {
	Content    string
	EngineUsed string
	Metadata   map[string]any
	Warnings   []string
}
