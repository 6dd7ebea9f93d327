package url

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/logger"
)

func TestFirecrawlIsAvailableRequiresAPIKey(t *testing.T) {
	withoutKey := NewFirecrawlEngine("", logger.Nop())
	if withoutKey.IsAvailable(context.Background()) {
		t.Fatalf("expected firecrawl to be unavailable without an api key")
	}
	withKey := NewFirecrawlEngine("secret", logger.Nop())
	if !withKey.IsAvailable(context.Background()) {
		t.Fatalf("expected firecrawl to be available with an api key")
	}
}

func TestFirecrawlExtractParsesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Hello",
				"metadata": map[string]any{"title": "Hello Page", "sourceURL": "https://example.com/final"},
			},
		})
	}))
	defer srv.Close()

	engine := NewFirecrawlEngine("secret", logger.Nop())
	engine.baseURL = srv.URL

	result, err := engine.Extract(context.Background(), ccore.Source{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "# Hello" {
		t.Fatalf("got content %q", result.Content)
	}
	if result.Metadata["title"] != "Hello Page" {
		t.Fatalf("got metadata %v", result.Metadata)
	}
}

func TestFirecrawlExtractClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer srv.Close()

	engine := NewFirecrawlEngine("bad-key", logger.Nop())
	engine.baseURL = srv.URL

	_, err := engine.Extract(context.Background(), ccore.Source{URL: "https://example.com"}, nil)
	if err == nil {
		t.Fatalf("expected an error for a 401 response")
	}
	if ccerr.KindOf(err) != ccerr.AuthError {
		t.Fatalf("expected AuthError, got %v", ccerr.KindOf(err))
	}
}

func TestFirecrawlRequiresURLSource(t *testing.T) {
	engine := NewFirecrawlEngine("secret", logger.Nop())
	_, err := engine.Extract(context.Background(), ccore.Source{FilePath: "/tmp/x"}, nil)
	if err == nil {
		t.Fatalf("expected an error for a non-url source")
	}
}

func TestJinaIsAlwaysAvailable(t *testing.T) {
	engine := NewJinaEngine("", logger.Nop())
	if !engine.IsAvailable(context.Background()) {
		t.Fatalf("expected jina to report available even without an api key")
	}
}

func TestHeadlessUnavailableWithNilRenderer(t *testing.T) {
	engine := NewHeadlessEngine(nil)
	if engine.IsAvailable(context.Background()) {
		t.Fatalf("expected headless engine with a nil renderer to be unavailable")
	}
	_, err := engine.Extract(context.Background(), ccore.Source{URL: "https://example.com"}, nil)
	if err == nil {
		t.Fatalf("expected extract to fail with no renderer configured")
	}
	if ccerr.KindOf(err) != ccerr.EngineUnavailable {
		t.Fatalf("expected EngineUnavailable, got %v", ccerr.KindOf(err))
	}
}

type fakeRenderer struct {
	available bool
	html      string
	finalURL  string
}

func (f *fakeRenderer) Name() string                        { return "fake_renderer" }
func (f *fakeRenderer) IsAvailable(ctx context.Context) bool { return f.available }
func (f *fakeRenderer) Render(ctx context.Context, pageURL string) (string, string, error) {
	return f.html, f.finalURL, nil
}

func TestHeadlessUsesRendererWhenAvailable(t *testing.T) {
	renderer := &fakeRenderer{available: true, html: "<html><head><title>Rendered</title></head><body><p>Content</p></body></html>", finalURL: "https://example.com/final"}
	engine := NewHeadlessEngine(renderer)
	if !engine.IsAvailable(context.Background()) {
		t.Fatalf("expected headless engine to be available with a ready renderer")
	}
	result, err := engine.Extract(context.Background(), ccore.Source{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["renderer"] != "fake_renderer" || result.Metadata["final_url"] != "https://example.com/final" {
		t.Fatalf("unexpected metadata: %v", result.Metadata)
	}
	if !strings.Contains(result.Content, "Content") {
		t.Fatalf("expected converted content to retain body text, got %q", result.Content)
	}
}

func TestBasicEngineExtractsAndConverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Basic Page</title></head><body><h1>Heading</h1><p>Body text</p></body></html>`))
	}))
	defer srv.Close()

	engine := NewBasicEngine()
	result, err := engine.Extract(context.Background(), ccore.Source{URL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["title"] != "Basic Page" {
		t.Fatalf("got metadata %v", result.Metadata)
	}
	if !strings.Contains(result.Content, "Heading") || !strings.Contains(result.Content, "Body text") {
		t.Fatalf("got content %q", result.Content)
	}
}

func TestBasicEngineClassifiesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	engine := NewBasicEngine()
	_, err := engine.Extract(context.Background(), ccore.Source{URL: srv.URL}, nil)
	if err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
	if ccerr.KindOf(err) != ccerr.NotFoundError {
		t.Fatalf("expected NotFoundError, got %v", ccerr.KindOf(err))
	}
}

func TestBasicEngineRequiresURLSource(t *testing.T) {
	engine := NewBasicEngine()
	_, err := engine.Extract(context.Background(), ccore.Source{FilePath: "/tmp/x"}, nil)
	if err == nil {
		t.Fatalf("expected an error for a non-url source")
	}
}

func TestClassifyStatusErrorUnwrapsThroughCcerrWrap(t *testing.T) {
	se := &httpStatusError{status: 429}
	wrapped := ccerr.Wrap(ccerr.RateLimitError, "test", se, "wrapped")
	var target *httpStatusError
	if !asStatusError(wrapped, &target) {
		t.Fatalf("expected asStatusError to find the underlying status error through the wrap chain")
	}
	if target.status != 429 {
		t.Fatalf("got status %d", target.status)
	}
}
