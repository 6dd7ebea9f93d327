// PdfLlm is the higher-quality structured-markdown variant of the PDF
// engine from spec §4.5: it reuses PdfText's byte-level extraction but
// post-processes the raw page text into heading/list-aware markdown
// using heuristics (blank-line paragraph breaks, numbered/bulleted line
// detection, consistent all-caps short lines as headings) rather than a
// second extraction pass. Tables are not detected; tabular text passes
// through as plain paragraphs.
package document

import (
	"context"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
)

var titleCaser = cases.Title(language.English)

type PdfLlmEngine struct {
	base *PdfTextEngine
}

func NewPdfLlmEngine(base *PdfTextEngine) *PdfLlmEngine {
	return &PdfLlmEngine{base: base}
}

func (e *PdfLlmEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:       "pdf_llm",
		MimeTypes:  []ccore.MimeType{"application/pdf"},
		Extensions: []string{".pdf"},
		Priority:   60,
		Category:   ccore.CategoryDocuments,
	}
}

func (e *PdfLlmEngine) IsAvailable(ctx context.Context) bool { return e.base != nil }

func (e *PdfLlmEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "pdf_llm requires a file path source")
	}
	raw, err := os.ReadFile(source.FilePath)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.NotFoundError, "pdf_llm", err, "read pdf file")
	}
	text, warnings, err := e.base.extract(raw)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.ParseError, "pdf_llm", err, "extract pdf text")
	}
	md := structureAsMarkdown(text)
	return ccore.ProcessorResult{Content: md, MimeType: "text/markdown", Warnings: warnings}, nil
}

var bulletLinePattern = regexp.MustCompile(`^\s*([•\-\*]|\d+[\.\)])\s+`)
var allCapsShortLine = regexp.MustCompile(`^[A-Z0-9 ,:&'\-]{3,60}$`)

// structureAsMarkdown reheuristics plain extracted text into markdown:
// short all-caps lines become headings, lines starting with a bullet or
// ordinal marker become list items, and everything else is left as
// paragraph text separated by blank lines.
func structureAsMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var out strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out.WriteString("\n")
		case bulletLinePattern.MatchString(trimmed):
			out.WriteString("- ")
			out.WriteString(bulletLinePattern.ReplaceAllString(trimmed, ""))
			out.WriteString("\n")
		case allCapsShortLine.MatchString(trimmed) && len(trimmed) > 0:
			out.WriteString("## ")
			out.WriteString(titleCaser.String(strings.ToLower(trimmed)))
			out.WriteString("\n")
		default:
			out.WriteString(trimmed)
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String())
}
