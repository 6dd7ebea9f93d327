// Package resolver implements the Engine Resolver from spec §4.2: a pure
// function from (source, config, registry) to an ordered chain of engine
// names to attempt, with no side effects and no I/O.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/config"
)

// Lookup is the subset of *registry.Registry the resolver needs. Defined
// here (rather than importing registry directly) so the resolver stays a
// pure function of whatever satisfies this narrow interface, and so
// tests can supply a fake without building a real Registry.
type Lookup interface {
	Names() []string
	FindByMime(ctx context.Context, mime ccore.MimeType) []ccore.Processor
	FindByCategory(ctx context.Context, category ccore.Category) []ccore.Processor
}

// Resolution is the resolver's output: the ordered chain of engine names
// to attempt, plus any warnings generated while building it (e.g. an
// unknown engine name dropped from an explicit override).
type Resolution struct {
	Chain    []string
	Warnings []string
}

// categoryOf maps a sniffed/declared MIME type to the coarse category
// used by category-level config and registry lookups (spec §4.2 step 4).
func categoryOf(mime ccore.MimeType, isURL, isYouTube bool) ccore.Category {
	switch {
	case isYouTube:
		return ccore.CategoryYouTube
	case isURL:
		return ccore.CategoryURLs
	}
	s := string(mime)
	switch {
	case strings.HasPrefix(s, "audio/"):
		return ccore.CategoryAudio
	case strings.HasPrefix(s, "video/"):
		return ccore.CategoryVideo
	case strings.HasPrefix(s, "image/"):
		return ccore.CategoryImages
	case strings.HasPrefix(s, "text/"):
		return ccore.CategoryText
	default:
		return ccore.CategoryDocuments
	}
}

// Resolve implements the six-step resolution order from spec §4.2:
//
//  1. explicit source.Engine override
//  2. env/config chain keyed by the exact MIME type
//  3. env/config chain keyed by the MIME's wildcard family ("image/*")
//  4. env/config chain keyed by category
//  5. legacy single-engine config (document/url)
//  6. auto-detect: every processor the registry reports for this mime,
//     already ordered by availability/priority/registration order
//
// Unknown names anywhere in an explicit chain are dropped with a
// warning rather than failing the whole resolution, except when the
// override leaves an empty chain, which is EngineNotFound.
func Resolve(ctx context.Context, reg Lookup, cfg *config.Config, source ccore.Source, mime ccore.MimeType, isURL, isYouTube bool) (Resolution, error) {
	known := map[string]bool{}
	for _, n := range reg.Names() {
		known[n] = true
	}
	res := Resolution{}

	appendKnown := func(names []string) {
		for _, n := range names {
			if !known[n] {
				res.Warnings = append(res.Warnings, fmt.Sprintf("resolver: unknown engine %q dropped from chain", n))
				continue
			}
			res.Chain = append(res.Chain, n)
		}
	}

	// Step 1: explicit override.
	if len(source.Engine) > 0 {
		appendKnown(source.Engine)
		if len(res.Chain) == 0 {
			return res, ccerr.Newf(ccerr.EngineNotFound, "none of the explicitly requested engines %v are registered", source.Engine)
		}
		return res, nil
	}

	category := categoryOf(mime, isURL, isYouTube)

	// Step 2: exact MIME config.
	if chain, ok := cfg.EnginesByMime[string(mime)]; ok {
		appendKnown(chain)
	}

	// Step 3: wildcard family config ("image/*").
	if len(res.Chain) == 0 {
		if idx := strings.IndexByte(string(mime), '/'); idx > 0 {
			family := string(mime)[:idx] + "/*"
			if chain, ok := cfg.EnginesByMime[family]; ok {
				appendKnown(chain)
			}
		}
	}

	// Step 4: category config.
	if len(res.Chain) == 0 {
		if chain, ok := cfg.EnginesByCategory[string(category)]; ok {
			appendKnown(chain)
		}
	}

	// Step 5: legacy single-engine config.
	if len(res.Chain) == 0 {
		switch category {
		case ccore.CategoryDocuments:
			if cfg.LegacyDocEngine != "" {
				appendKnown([]string{cfg.LegacyDocEngine})
			}
		case ccore.CategoryURLs:
			if cfg.LegacyURLEngine != "" {
				appendKnown([]string{cfg.LegacyURLEngine})
			}
		}
	}

	// Step 6: auto-detect via the registry.
	if len(res.Chain) == 0 {
		var procs []ccore.Processor
		if category == ccore.CategoryURLs || category == ccore.CategoryYouTube {
			procs = reg.FindByCategory(ctx, category)
		} else {
			procs = reg.FindByMime(ctx, mime)
			if len(procs) == 0 {
				procs = reg.FindByCategory(ctx, category)
			}
		}
		for _, p := range procs {
			res.Chain = append(res.Chain, p.Capabilities().Name)
		}
	}

	if len(res.Chain) == 0 {
		return res, ccerr.Newf(ccerr.NoEngineAvailable, "no engine registered for mime %q (category %q)", mime, category)
	}
	return res, nil
}
