package resolver

import (
	"context"
	"testing"

	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/config"
)

type fakeLookup struct {
	names      []string
	byMime     map[ccore.MimeType][]string
	byCategory map[ccore.Category][]string
}

func (f *fakeLookup) Names() []string { return f.names }

func (f *fakeLookup) FindByMime(ctx context.Context, mime ccore.MimeType) []ccore.Processor {
	return namesToProcessors(f.byMime[mime])
}

func (f *fakeLookup) FindByCategory(ctx context.Context, category ccore.Category) []ccore.Processor {
	return namesToProcessors(f.byCategory[category])
}

type stubProcessor struct{ name string }

func (s stubProcessor) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{Name: s.name}
}
func (s stubProcessor) IsAvailable(ctx context.Context) bool { return true }
func (s stubProcessor) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	return ccore.ProcessorResult{}, nil
}

func namesToProcessors(names []string) []ccore.Processor {
	out := make([]ccore.Processor, len(names))
	for i, n := range names {
		out[i] = stubProcessor{name: n}
	}
	return out
}

func baseConfig() *config.Config {
	return config.NewBuilder().WithKnownEngines(nil).Build()
}

func TestResolveExplicitOverrideWins(t *testing.T) {
	lookup := &fakeLookup{names: []string{"pdf_text", "pdf_llm"}}
	cfg := baseConfig()
	cfg.EnginesByMime["application/pdf"] = []string{"pdf_llm"}
	src := ccore.Source{Engine: []string{"pdf_text"}}

	res, err := Resolve(context.Background(), lookup, cfg, src, "application/pdf", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "pdf_text" {
		t.Fatalf("expected explicit override to win, got %v", res.Chain)
	}
}

func TestResolveExplicitOverrideUnknownEngineFails(t *testing.T) {
	lookup := &fakeLookup{names: []string{"pdf_text"}}
	cfg := baseConfig()
	src := ccore.Source{Engine: []string{"nonexistent"}}

	_, err := Resolve(context.Background(), lookup, cfg, src, "application/pdf", false, false)
	if err == nil {
		t.Fatalf("expected error when every explicitly requested engine is unknown")
	}
}

func TestResolveExplicitOverridePartiallyUnknownWarns(t *testing.T) {
	lookup := &fakeLookup{names: []string{"pdf_text"}}
	cfg := baseConfig()
	src := ccore.Source{Engine: []string{"nonexistent", "pdf_text"}}

	res, err := Resolve(context.Background(), lookup, cfg, src, "application/pdf", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "pdf_text" {
		t.Fatalf("expected unknown engine dropped, known kept: %v", res.Chain)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning about the dropped engine, got %v", res.Warnings)
	}
}

func TestResolveExactMimeConfig(t *testing.T) {
	lookup := &fakeLookup{names: []string{"pdf_text", "pdf_llm"}}
	cfg := baseConfig()
	cfg.EnginesByMime["application/pdf"] = []string{"pdf_llm", "pdf_text"}

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "application/pdf", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 2 || res.Chain[0] != "pdf_llm" {
		t.Fatalf("expected exact mime chain honored, got %v", res.Chain)
	}
}

func TestResolveWildcardFamilyConfig(t *testing.T) {
	lookup := &fakeLookup{names: []string{"image_vlm"}}
	cfg := baseConfig()
	cfg.EnginesByMime["image/*"] = []string{"image_vlm"}

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "image/png", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "image_vlm" {
		t.Fatalf("expected wildcard family chain honored, got %v", res.Chain)
	}
}

func TestResolveCategoryConfig(t *testing.T) {
	lookup := &fakeLookup{names: []string{"basic_url"}}
	cfg := baseConfig()
	cfg.EnginesByCategory["urls"] = []string{"basic_url"}

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "text/html", true, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "basic_url" {
		t.Fatalf("expected category chain honored, got %v", res.Chain)
	}
}

func TestResolveLegacyDocEngineFallback(t *testing.T) {
	lookup := &fakeLookup{names: []string{"office_doc"}}
	cfg := baseConfig()
	cfg.LegacyDocEngine = "office_doc"

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "office_doc" {
		t.Fatalf("expected legacy doc engine fallback, got %v", res.Chain)
	}
}

func TestResolveAutoDetectFallsThroughToRegistry(t *testing.T) {
	lookup := &fakeLookup{
		names:  []string{"plain_text"},
		byMime: map[ccore.MimeType][]string{"text/plain": {"plain_text"}},
	}
	cfg := baseConfig()

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "text/plain", false, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "plain_text" {
		t.Fatalf("expected auto-detect chain from registry, got %v", res.Chain)
	}
}

func TestResolveNoEngineAvailableErrors(t *testing.T) {
	lookup := &fakeLookup{names: []string{}}
	cfg := baseConfig()

	_, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "application/x-unknown", false, false)
	if err == nil {
		t.Fatalf("expected error when no engine can be found")
	}
}

func TestResolveYouTubeUsesCategoryLookup(t *testing.T) {
	lookup := &fakeLookup{
		names:      []string{"youtube_transcript"},
		byCategory: map[ccore.Category][]string{ccore.CategoryYouTube: {"youtube_transcript"}},
	}
	cfg := baseConfig()

	res, err := Resolve(context.Background(), lookup, cfg, ccore.Source{}, "text/html", true, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Chain) != 1 || res.Chain[0] != "youtube_transcript" {
		t.Fatalf("expected youtube category lookup, got %v", res.Chain)
	}
}
