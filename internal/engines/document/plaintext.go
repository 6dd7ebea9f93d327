// PlainText and HtmlFile implement the pass-through text engines from
// spec §4.5: plain text flows through unchanged, and HTML is detected by
// its markers and converted to markdown via internal/markdown, falling
// back to verbatim content when conversion fails.
package document

import (
	"context"
	"os"
	"strings"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/markdown"
)

type PlainTextEngine struct{}

func NewPlainTextEngine() *PlainTextEngine { return &PlainTextEngine{} }

func (e *PlainTextEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:       "plain_text",
		MimeTypes:  []ccore.MimeType{"text/plain", "text/csv", "text/*"},
		Extensions: []string{".txt", ".csv", ".log", ".md"},
		Priority:   30,
		Category:   ccore.CategoryText,
	}
}

func (e *PlainTextEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *PlainTextEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	content, err := readSourceText(source)
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return ccore.ProcessorResult{Content: content, MimeType: "text/plain"}, nil
}

// htmlMarkerPrefixes are the opening signatures spec §4.5 says to detect
// HTML by, checked against a lowercased, leading-whitespace-trimmed
// prefix of the content.
var htmlMarkerPrefixes = []string{"<!doctype", "<html", "<head", "<body", "<div", "<p>", "<span"}

func looksLikeHTML(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	for _, marker := range htmlMarkerPrefixes {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return strings.Contains(trimmed, "<html") || strings.Contains(trimmed, "<!doctype html")
}

type HtmlFileEngine struct{}

func NewHtmlFileEngine() *HtmlFileEngine { return &HtmlFileEngine{} }

func (e *HtmlFileEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:       "html_file",
		MimeTypes:  []ccore.MimeType{"text/html"},
		Extensions: []string{".html", ".htm"},
		Priority:   40,
		Category:   ccore.CategoryDocuments,
	}
}

func (e *HtmlFileEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *HtmlFileEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	content, err := readSourceText(source)
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	if !looksLikeHTML(content) {
		return ccore.ProcessorResult{Content: content, MimeType: "text/plain"}, nil
	}
	md, convErr := markdown.ConvertHTML(content)
	if convErr != nil {
		return ccore.ProcessorResult{
			Content:  content,
			MimeType: "text/html",
			Warnings: []string{"html to markdown conversion failed, returning verbatim content: " + convErr.Error()},
		}, nil
	}
	return ccore.ProcessorResult{Content: md, MimeType: "text/markdown"}, nil
}

func readSourceText(source ccore.Source) (string, error) {
	switch source.Kind() {
	case "file":
		b, err := os.ReadFile(source.FilePath)
		if err != nil {
			return "", ccerr.Wrap(ccerr.NotFoundError, "", err, "read text file")
		}
		return string(b), nil
	case "raw":
		return source.RawContent, nil
	default:
		return "", ccerr.New(ccerr.UnsupportedContentError, "engine requires a file or raw content source")
	}
}
