package markdown

import (
	"strings"
	"testing"
)

func TestCleanHTMLStripsChrome(t *testing.T) {
	raw := `<html><body><nav>menu</nav><article>Keep me</article><script>track()</script></body></html>`
	cleaned, err := CleanHTML(raw)
	if err != nil {
		t.Fatalf("CleanHTML: %v", err)
	}
	if strings.Contains(cleaned, "menu") || strings.Contains(cleaned, "track()") {
		t.Fatalf("expected nav/script chrome stripped, got %q", cleaned)
	}
	if !strings.Contains(cleaned, "Keep me") {
		t.Fatalf("expected article content preserved, got %q", cleaned)
	}
}

func TestConvertHTMLProducesWellFormedMarkdown(t *testing.T) {
	raw := `<html><body><h1>Title</h1><p>Some <strong>bold</strong> text.</p></body></html>`
	md, err := ConvertHTML(raw)
	if err != nil {
		t.Fatalf("ConvertHTML: %v", err)
	}
	if !IsWellFormed(md) {
		t.Fatalf("expected converted markdown to be well-formed CommonMark, got %q", md)
	}
	if !strings.Contains(md, "Title") || !strings.Contains(md, "bold") {
		t.Fatalf("expected converted markdown to retain source text, got %q", md)
	}
}

func TestIsWellFormedRejectsNothingGoldmarkCantParse(t *testing.T) {
	if !IsWellFormed("# just a heading\n\nand a paragraph") {
		t.Fatalf("expected plain markdown to be well-formed")
	}
}
