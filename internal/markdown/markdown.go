// Package markdown wraps HTML-to-Markdown conversion and the cleanup
// pass engines run before handing content to callers: stripping chrome
// (nav/ads/scripts) with goquery before conversion, and a goldmark
// round-trip check used by tests to confirm conversion output is valid
// CommonMark. Grounded on the retrieval pack's HTML source adapter,
// which calls htmltomarkdown.ConvertString directly.
package markdown

import (
	"bytes"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"

	"github.com/lfnovo/content-core/internal/ccerr"
)

// chromeSelectors are stripped before conversion: navigation, scripts,
// styles, and common ad/cookie-banner containers that would otherwise
// pollute extracted article content.
var chromeSelectors = []string{
	"script", "style", "noscript", "nav", "footer", "header",
	"[role=navigation]", "[aria-hidden=true]",
	".advertisement", ".ad-banner", ".cookie-banner",
}

// CleanHTML removes chrome elements from raw HTML using goquery,
// returning the cleaned document's HTML. Parse failures are reported as
// ccerr.ParseError since malformed HTML at this stage means the source
// itself is unusable.
func CleanHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", ccerr.Wrap(ccerr.ParseError, "", err, "parse html for cleanup")
	}
	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}
	out, err := doc.Html()
	if err != nil {
		return "", ccerr.Wrap(ccerr.ParseError, "", err, "serialize cleaned html")
	}
	return out, nil
}

// ConvertHTML cleans and converts raw HTML to Markdown.
func ConvertHTML(raw string) (string, error) {
	cleaned, err := CleanHTML(raw)
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return "", ccerr.Wrap(ccerr.ParseError, "", err, "convert html to markdown")
	}
	return md, nil
}

// IsWellFormed reports whether md parses as CommonMark without error,
// used as an idempotence check by tests. No engine calls it.
func IsWellFormed(md string) bool {
	var buf bytes.Buffer
	return goldmark.Convert([]byte(md), &buf) == nil
}
