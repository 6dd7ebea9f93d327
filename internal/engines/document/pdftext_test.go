package document

import (
	"strings"
	"testing"
)

func TestDecodeLiteralStringHandlesEscapes(t *testing.T) {
	got := decodeLiteralString(`(Hello\nWorld\)!)`)
	want := "Hello\nWorld)!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecodeLiteralStringHandlesOctalEscape(t *testing.T) {
	got := decodeLiteralString(`(\101\102\103)`)
	if got != "ABC" {
		t.Fatalf("got %q, want ABC", got)
	}
}

func TestDecodeHexStringHandlesWhitespaceAndOddLength(t *testing.T) {
	got := decodeHexString("<48 65 6c 6c 6f>")
	if got != "Hello" {
		t.Fatalf("got %q, want Hello", got)
	}
	if got := decodeHexString("<4142 4>"); got != "AB@" {
		t.Fatalf("got %q, want AB@", got)
	}
}

func TestExtractTextOperatorsConcatenatesTjOperands(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf (Hello) Tj (World) Tj ET`)
	got := extractTextOperators(stream)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextOperatorsHandlesTJArrays(t *testing.T) {
	stream := []byte(`BT [(Hel)-20(lo)] TJ ET`)
	got := extractTextOperators(stream)
	if got != "Hello" {
		t.Fatalf("got %q, want Hello", got)
	}
}

func TestExtractPdfPagesParsesUncompressedStream(t *testing.T) {
	raw := []byte("<< /Length 20 >>\nstream\n(Hello World) Tj\nendstream")
	pages, err := extractPdfPages(raw)
	if err != nil {
		t.Fatalf("extractPdfPages: %v", err)
	}
	if len(pages) != 1 || pages[0] != "Hello World" {
		t.Fatalf("got pages %v", pages)
	}
}

func TestExtractPdfPagesSkipsUnsupportedFilters(t *testing.T) {
	raw := []byte("<< /Length 10 /Filter /DCTDecode >>\nstream\nbinaryjunk\nendstream")
	_, err := extractPdfPages(raw)
	if err == nil {
		t.Fatalf("expected an error when every stream uses an unsupported filter")
	}
}

func TestExtractPdfPagesNoStreamsErrors(t *testing.T) {
	_, err := extractPdfPages([]byte("not a pdf at all"))
	if err == nil {
		t.Fatalf("expected an error for input with no content streams")
	}
}

func TestPdfTextEngineExtractConcatenatesMultiplePages(t *testing.T) {
	engine := NewPdfTextEngine(nil, false)
	raw := []byte("<< /Length 20 >>\nstream\n(Page One) Tj\nendstream\n" +
		"<< /Length 20 >>\nstream\n(Page Two) Tj\nendstream")
	text, warnings, err := engine.extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if !strings.Contains(text, "Page One") || !strings.Contains(text, "Page Two") {
		t.Fatalf("got %q", text)
	}
}
