// PdfText implements fast byte-level PDF text extraction without a full
// object-graph parser: it scans the raw file for stream/endstream pairs,
// inflates any FlateDecode-filtered ones, and reads the content stream's
// text-showing operators (Tj, TJ) directly. This trades layout
// fidelity for speed and zero third-party dependency surface; no library
// in the retrieval pack reads PDF text (DESIGN.md records the
// justification for this being stdlib-only).
package document

import (
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
)

type PdfTextEngine struct {
	ocrFallback OCRFallback
	enableOCR   bool
}

// OCRFallback renders a formula-heavy page to an image and OCRs it; the
// engine calls this only when the heuristic formula-placeholder count
// exceeds formulaThreshold (spec §4.5 "Optional OCR pass").
type OCRFallback interface {
	RenderAndRecognize(pageIndex int, pdf []byte) (string, error)
}

func NewPdfTextEngine(ocr OCRFallback, enableOCR bool) *PdfTextEngine {
	return &PdfTextEngine{ocrFallback: ocr, enableOCR: enableOCR}
}

func (e *PdfTextEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:       "pdf_text",
		MimeTypes:  []ccore.MimeType{"application/pdf"},
		Extensions: []string{".pdf"},
		Priority:   50,
		Category:   ccore.CategoryDocuments,
	}
}

func (e *PdfTextEngine) IsAvailable(ctx context.Context) bool { return true }

// Extract reads source's PDF bytes (from FilePath; raw/url sources are
// rejected with UnsupportedContentError since this engine only handles
// local files) and returns the concatenated per-stream text.
func (e *PdfTextEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "pdf_text requires a file path source")
	}
	raw, err := os.ReadFile(source.FilePath)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.NotFoundError, "pdf_text", err, "read pdf file")
	}
	text, warnings, err := e.extract(raw)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.ParseError, "pdf_text", err, "extract pdf text")
	}
	return ccore.ProcessorResult{
		Content:  text,
		MimeType: "text/markdown",
		Warnings: warnings,
		Metadata: map[string]any{"page_count": strings.Count(text, "\n\n") + 1},
	}, nil
}

const formulaThreshold = 8

// formulaPlaceholderPattern heuristically flags undecoded formula glyphs
// PDF producers sometimes emit as private-use-area codepoints or
// replacement characters when a page is formula-heavy.
var formulaPlaceholderPattern = regexp.MustCompile(`[\x{E000}-\x{F8FF}\x{FFFD}]`)

func (e *PdfTextEngine) extract(raw []byte) (string, []string, error) {
	pages, err := extractPdfPages(raw)
	if err != nil {
		return "", nil, err
	}
	var warnings []string
	var out strings.Builder
	for i, page := range pages {
		text := page
		if e.enableOCR && e.ocrFallback != nil {
			if n := formulaPlaceholderPattern.FindAllStringIndex(text, -1); len(n) > formulaThreshold {
				if ocrText, ocrErr := e.ocrFallback.RenderAndRecognize(i, raw); ocrErr == nil && strings.TrimSpace(ocrText) != "" {
					text = ocrText
				} else if ocrErr != nil {
					warnings = append(warnings, fmt.Sprintf("page %d: ocr fallback failed: %v", i, ocrErr))
				}
			}
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(strings.TrimSpace(text))
	}
	return out.String(), warnings, nil
}

var streamPattern = regexp.MustCompile(`(?s)(<<.*?>>)\s*stream\r?\n(.*?)\r?\nendstream`)

// extractPdfPages returns one string per detected content stream, in file
// order. This is not a faithful page model (it does not resolve the
// page tree), but content streams appear in roughly document order in
// the overwhelming majority of producers, which is the heuristic this
// engine trades for not implementing a full xref/object parser.
func extractPdfPages(raw []byte) ([]string, error) {
	matches := streamPattern.FindAllSubmatch(raw, -1)
	if matches == nil {
		return nil, ccerr.New(ccerr.ParseError, "no content streams found in pdf")
	}
	var pages []string
	for _, m := range matches {
		dict := string(m[1])
		if !strings.Contains(dict, "/Length") {
			continue
		}
		streamBytes := m[2]
		if strings.Contains(dict, "/FlateDecode") {
			inflated, err := inflate(streamBytes)
			if err == nil {
				streamBytes = inflated
			} else {
				continue
			}
		} else if strings.Contains(dict, "/Filter") {
			// A filter we don't support (DCTDecode image data, CCITTFax,
			// etc.) — not a text content stream, skip it.
			continue
		}
		if text := extractTextOperators(streamBytes); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, ccerr.New(ccerr.ParseError, "pdf contained no extractable text streams")
	}
	return pages, nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

var (
	showTextPattern   = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)\s*Tj`)
	showHexPattern    = regexp.MustCompile(`<[0-9A-Fa-f\s]*>\s*Tj`)
	showArrayPattern  = regexp.MustCompile(`\[(?:[^\[\]]|\\.)*\]\s*TJ`)
	literalStrPattern = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)`)
	hexStrPattern     = regexp.MustCompile(`<[0-9A-Fa-f\s]*>`)
)

// extractTextOperators scans a decoded content stream for Tj/TJ
// text-showing operators and concatenates their string operands, with a
// space after each operator. Output is grouped by operator kind rather
// than stream order: all literal Tj operands, then all hex Tj operands,
// then each TJ array (its literal pieces before its hex pieces). TJ
// kerning numbers are ignored; no line breaks are inserted.
func extractTextOperators(stream []byte) string {
	var out strings.Builder
	for _, m := range showTextPattern.FindAll(stream, -1) {
		lit := literalStrPattern.Find(m)
		if lit == nil {
			continue
		}
		out.WriteString(decodeLiteralString(string(lit)))
		out.WriteString(" ")
	}
	for _, m := range showHexPattern.FindAll(stream, -1) {
		hx := hexStrPattern.Find(m)
		if hx == nil {
			continue
		}
		out.WriteString(decodeHexString(string(hx)))
		out.WriteString(" ")
	}
	for _, m := range showArrayPattern.FindAll(stream, -1) {
		for _, piece := range literalStrPattern.FindAll(m, -1) {
			out.WriteString(decodeLiteralString(string(piece)))
		}
		for _, piece := range hexStrPattern.FindAll(m, -1) {
			out.WriteString(decodeHexString(string(piece)))
		}
		out.WriteString(" ")
	}
	return strings.TrimSpace(out.String())
}

// decodeHexString unescapes a PDF "<...>" hex string operand.
func decodeHexString(hx string) string {
	hx = strings.TrimPrefix(hx, "<")
	hx = strings.TrimSuffix(hx, ">")
	hx = strings.Join(strings.Fields(hx), "")
	if len(hx)%2 == 1 {
		hx += "0"
	}
	out := make([]byte, 0, len(hx)/2)
	for i := 0; i+1 < len(hx); i += 2 {
		n, err := strconv.ParseUint(hx[i:i+2], 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(n))
	}
	return string(out)
}

var pdfEscapes = map[byte]byte{'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f', '(': '(', ')': ')', '\\': '\\'}

// decodeLiteralString unescapes a PDF "(...)" literal string: backslash
// escapes and octal byte escapes, preserving ligatures (e.g. "ﬁ")
// the producer already encoded as literal UTF-16BE-in-Latin1 bytes by
// passing everything else through untouched.
func decodeLiteralString(lit string) string {
	lit = strings.TrimPrefix(lit, "(")
	lit = strings.TrimSuffix(lit, ")")
	var out strings.Builder
	for i := 0; i < len(lit); i++ {
		c := lit[i]
		if c != '\\' || i == len(lit)-1 {
			out.WriteByte(c)
			continue
		}
		next := lit[i+1]
		if next >= '0' && next <= '7' {
			j := i + 1
			for j < len(lit) && j < i+4 && lit[j] >= '0' && lit[j] <= '7' {
				j++
			}
			if n, err := strconv.ParseUint(lit[i+1:j], 8, 8); err == nil {
				out.WriteByte(byte(n))
			}
			i = j - 1
			continue
		}
		if repl, ok := pdfEscapes[next]; ok {
			out.WriteByte(repl)
			i++
			continue
		}
		i++
	}
	return out.String()
}
