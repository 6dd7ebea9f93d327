package ccore

import (
	"context"
	"strings"
	"testing"

	internalccore "github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/registry"
)

// fakeTextProcessor is a minimal internalccore.Processor used to exercise
// the public Service.Extract facade end to end without constructing any
// real provider.
type fakeTextProcessor struct{}

func (fakeTextProcessor) Capabilities() internalccore.ProcessorCapabilities {
	return internalccore.ProcessorCapabilities{
		Name:       "fake_text",
		MimeTypes:  []internalccore.MimeType{"text/plain"},
		Extensions: []string{".txt"},
		Priority:   10,
		Category:   internalccore.CategoryText,
	}
}

func (fakeTextProcessor) IsAvailable(ctx context.Context) bool { return true }

func (fakeTextProcessor) Extract(ctx context.Context, source internalccore.Source, options map[string]any) (internalccore.ProcessorResult, error) {
	return internalccore.ProcessorResult{Content: strings.ToUpper(source.RawContent), MimeType: "text/plain"}, nil
}

func TestServiceExtractRunsFullResolveThenRoutePipeline(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(fakeTextProcessor{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	reg.Seal()

	svc := NewService(reg, nil)
	result, err := svc.Extract(context.Background(), Source{RawContent: "hello"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "HELLO" {
		t.Fatalf("got content %q", result.Content)
	}
	if result.EngineUsed != "fake_text" {
		t.Fatalf("got engine %q", result.EngineUsed)
	}
}

func TestServiceExtractNoEngineAvailableErrors(t *testing.T) {
	reg := registry.New()
	reg.Seal()

	svc := NewService(reg, nil)
	if _, err := svc.Extract(context.Background(), Source{RawContent: "hello"}); err == nil {
		t.Fatalf("expected an error when no engine is registered")
	}
}
