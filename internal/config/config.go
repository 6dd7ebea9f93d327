// Package config builds the immutable ExtractionConfig snapshot described
// in spec §3/§6: env-var driven, optionally overlaid with a YAML document,
// rebuilt per request unless a caller holds onto a cached *Config and
// checks its Fingerprint themselves.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/lfnovo/content-core/internal/ccore"
)

type OnError string

const (
	OnErrorNext OnError = "next"
	OnErrorWarn OnError = "warn"
	OnErrorFail OnError = "fail"
)

type Fallback struct {
	Enabled     bool
	MaxAttempts int
	OnError     OnError
	FatalErrors map[string]bool
}

type Audio struct {
	Concurrency      int
	ProviderOverride string
	ModelOverride    string
	MaxRetries       int
	BaseDelaySeconds float64
	MaxDelaySeconds  float64
}

// Config is the per-request immutable ExtractionConfig snapshot.
type Config struct {
	EnginesByMime     map[string][]string
	EnginesByCategory map[string][]string
	LegacyDocEngine   string
	LegacyURLEngine   string
	Fallback          Fallback
	EngineOptions     map[string]map[string]any
	Audio             Audio
	TimeoutSeconds    int

	// Warnings accumulated while building this snapshot (e.g. unknown
	// engine names dropped from an env chain). Service.Extract appends
	// these to the result's warnings.
	Warnings []string

	fingerprint uint64
}

// Fingerprint is a stable hash of everything that went into this
// snapshot, used to decide whether a cached Config needs rebuilding
// (spec §3 "ExtractionConfig... cached with invalidation on override").
func (c *Config) Fingerprint() uint64 { return c.fingerprint }

// YAMLOverlay is the optional supplementary document for engine_options
// blocks that don't fit cleanly into a single env var (spec §4.5
// "Options"). Keys are engine names; values are opaque option maps.
type YAMLOverlay struct {
	EngineOptions map[string]map[string]any `yaml:"engine_options"`
}

// ParseYAMLOverlay parses raw YAML bytes into a YAMLOverlay. Returns a
// zero-value overlay (no error) for empty input, since the overlay is
// always optional.
func ParseYAMLOverlay(raw []byte) (YAMLOverlay, error) {
	var ov YAMLOverlay
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ov, nil
	}
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return ov, fmt.Errorf("config: parse yaml overlay: %w", err)
	}
	return ov, nil
}

// Builder.KnownEngines is used to drop unrecognized names from env chains
// with a warning, per spec §4.2 "Unknown engine names in env
// configuration emit a warning and are dropped". Builders that know the
// full registry should pass its Names(); a nil/empty set disables this
// check (everything is accepted, useful in tests that build Config
// before a registry exists).
type Builder struct {
	Getenv        func(string) string
	YAML          YAMLOverlay
	KnownEngines  map[string]bool
	failOnUnknown bool
}

func NewBuilder() *Builder {
	return &Builder{Getenv: os.Getenv}
}

func (b *Builder) WithYAML(ov YAMLOverlay) *Builder {
	b.YAML = ov
	return b
}

func (b *Builder) WithKnownEngines(names map[string]bool) *Builder {
	b.KnownEngines = names
	return b
}

// Build reads environment variables (via b.Getenv) plus any YAML overlay
// and produces an immutable Config snapshot.
func (b *Builder) Build() *Config {
	if b.Getenv == nil {
		b.Getenv = os.Getenv
	}

	c := &Config{
		EnginesByMime:     map[string][]string{},
		EnginesByCategory: map[string][]string{},
		EngineOptions:     map[string]map[string]any{},
		Audio:             Audio{Concurrency: 3, MaxRetries: 3, BaseDelaySeconds: 0.5, MaxDelaySeconds: 10},
		TimeoutSeconds:    0,
		Fallback: Fallback{
			Enabled:     true,
			MaxAttempts: 5,
			OnError:     OnErrorWarn,
			FatalErrors: map[string]bool{},
		},
	}

	c.LegacyDocEngine = strings.TrimSpace(b.Getenv("CCORE_DOCUMENT_ENGINE"))
	c.LegacyURLEngine = strings.TrimSpace(b.Getenv("CCORE_URL_ENGINE"))

	if v := strings.TrimSpace(b.Getenv("CCORE_FALLBACK_ENABLED")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Fallback.Enabled = parsed
		} else {
			c.warn("invalid CCORE_FALLBACK_ENABLED=%q; defaulting to true", v)
		}
	}
	if v := strings.TrimSpace(b.Getenv("CCORE_FALLBACK_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 10 {
			c.Fallback.MaxAttempts = n
		} else {
			c.warn("invalid CCORE_FALLBACK_MAX_ATTEMPTS=%q; defaulting to 5", v)
		}
	}
	if v := strings.TrimSpace(strings.ToLower(b.Getenv("CCORE_FALLBACK_ON_ERROR"))); v != "" {
		switch OnError(v) {
		case OnErrorNext, OnErrorWarn, OnErrorFail:
			c.Fallback.OnError = OnError(v)
		default:
			c.warn("invalid CCORE_FALLBACK_ON_ERROR=%q; defaulting to warn", v)
		}
	}

	if v := strings.TrimSpace(b.Getenv("CCORE_AUDIO_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 10 {
			c.Audio.Concurrency = n
		} else {
			c.warn("invalid CCORE_AUDIO_CONCURRENCY=%q; defaulting to 3", v)
			c.Audio.Concurrency = 3
		}
	}

	// Scan every CCORE_ENGINE_<MIME_OR_CATEGORY> env var.
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if b.Getenv != nil {
			// Re-read via the injected Getenv so tests using a fake
			// Getenv (not real os.Environ) still work; os.Environ()
			// only supplies key discovery.
			val = b.Getenv(key)
		}
		const prefix = "CCORE_ENGINE_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(key, prefix)
		chain := b.parseChain(c, key, val)
		if len(chain) == 0 {
			continue
		}
		if cat, ok := categoryFromEnvSuffix(suffix); ok {
			c.EnginesByCategory[string(cat)] = chain
			continue
		}
		mime := mimeFromEnvSuffix(suffix)
		c.EnginesByMime[mime] = chain
	}

	for name, opts := range b.YAML.EngineOptions {
		c.EngineOptions[name] = opts
	}

	c.fingerprint = c.computeFingerprint(b)
	return c
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// parseChain splits a comma-separated engine chain, dropping unknown
// names (per spec §4.2) if KnownEngines was provided and recording a
// warning on c for each one dropped.
func (b *Builder) parseChain(c *Config, key, val string) []string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if b.KnownEngines != nil && !b.KnownEngines[name] {
			c.warn("unknown engine %q in %s dropped", name, key)
			continue
		}
		out = append(out, name)
	}
	return out
}

var knownCategories = map[string]ccore.Category{
	"DOCUMENTS": ccore.CategoryDocuments,
	"URLS":      ccore.CategoryURLs,
	"AUDIO":     ccore.CategoryAudio,
	"VIDEO":     ccore.CategoryVideo,
	"IMAGES":    ccore.CategoryImages,
	"TEXT":      ccore.CategoryText,
	"YOUTUBE":   ccore.CategoryYouTube,
}

func categoryFromEnvSuffix(suffix string) (ccore.Category, bool) {
	cat, ok := knownCategories[strings.ToUpper(suffix)]
	return cat, ok
}

// mimeFromEnvSuffix reverses the env-var encoding from spec §6:
// "slashes and pluses mapped to underscores, uppercased". Since that
// encoding is lossy (both '/' and '+' become '_'), this module documents
// the one MIME family it needs to decode unambiguously: exactly one
// underscore separates type from subtype, and any remaining underscores
// are treated as '+' (covers "application/vnd.api+json"-style subtypes
// encountered in document MIME config).
func mimeFromEnvSuffix(suffix string) string {
	lower := strings.ToLower(suffix)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 {
		return lower
	}
	return parts[0] + "/" + strings.ReplaceAll(parts[1], "_", "+")
}

func (c *Config) computeFingerprint(b *Builder) uint64 {
	h := xxhash.New()
	write := func(s string) { _, _ = h.WriteString(s + "\n") }

	write(c.LegacyDocEngine)
	write(c.LegacyURLEngine)
	write(fmt.Sprintf("%v", c.Fallback))
	write(fmt.Sprintf("%v", c.Audio))
	write(strconv.Itoa(c.TimeoutSeconds))

	keys := make([]string, 0, len(c.EnginesByMime))
	for k := range c.EnginesByMime {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k + "=" + strings.Join(c.EnginesByMime[k], ","))
	}

	catKeys := make([]string, 0, len(c.EnginesByCategory))
	for k := range c.EnginesByCategory {
		catKeys = append(catKeys, k)
	}
	sort.Strings(catKeys)
	for _, k := range catKeys {
		write(k + "=" + strings.Join(c.EnginesByCategory[k], ","))
	}

	optKeys := make([]string, 0, len(c.EngineOptions))
	for k := range c.EngineOptions {
		optKeys = append(optKeys, k)
	}
	sort.Strings(optKeys)
	for _, k := range optKeys {
		write(fmt.Sprintf("%s=%v", k, c.EngineOptions[k]))
	}

	return h.Sum64()
}
