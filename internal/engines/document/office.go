// OfficeDoc extracts text from DOCX/PPTX/XLSX (OpenXML) files by reading
// their zip-packaged part XML directly, the same way the teacher's
// outline package pulls heading/slide text: archive/zip + encoding/xml,
// no third-party office-document library (none exists anywhere in the
// retrieval pack; DESIGN.md records the justification).
package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
)

type OfficeDocEngine struct{}

func NewOfficeDocEngine() *OfficeDocEngine { return &OfficeDocEngine{} }

func (e *OfficeDocEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name: "office_doc",
		MimeTypes: []ccore.MimeType{
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/msword",
			"application/vnd.ms-powerpoint",
			"application/vnd.ms-excel",
		},
		Extensions: []string{".docx", ".pptx", ".xlsx", ".doc", ".ppt", ".xls", ".odt"},
		Priority:   50,
		Category:   ccore.CategoryDocuments,
	}
}

func (e *OfficeDocEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *OfficeDocEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "office_doc requires a file path source")
	}
	rc, err := zip.OpenReader(source.FilePath)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.ParseError, "office_doc", err, "open office zip package")
	}
	defer rc.Close()

	switch {
	case hasZipFile(rc.File, "word/document.xml"):
		return e.extractDocx(rc.File)
	case len(findZipFiles(rc.File, "ppt/slides/slide", ".xml")) > 0:
		return e.extractPptx(rc.File)
	case len(findZipFiles(rc.File, "xl/worksheets/sheet", ".xml")) > 0:
		return e.extractXlsx(rc.File)
	default:
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "unrecognized office package layout")
	}
}

func (e *OfficeDocEngine) extractDocx(files []*zip.File) (ccore.ProcessorResult, error) {
	body, err := readZipFile(files, "word/document.xml")
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.ParseError, "office_doc", err, "read word/document.xml")
	}
	paras := extractParagraphs(body)
	var out strings.Builder
	for _, p := range paras {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		if isHeadingStyle(p.Style) {
			out.WriteString("## ")
		}
		out.WriteString(p.Text)
		out.WriteString("\n\n")
	}
	return ccore.ProcessorResult{Content: strings.TrimSpace(out.String()), MimeType: "text/markdown"}, nil
}

func (e *OfficeDocEngine) extractPptx(files []*zip.File) (ccore.ProcessorResult, error) {
	slideFiles := findZipFiles(files, "ppt/slides/slide", ".xml")
	sort.Strings(slideFiles)
	var out strings.Builder
	for i, name := range slideFiles {
		raw, err := readZipFile(files, name)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(extractAllText(raw))
		if text == "" {
			continue
		}
		out.WriteString(fmt.Sprintf("## Slide %d\n\n", i+1))
		out.WriteString(text)
		out.WriteString("\n\n")
	}
	return ccore.ProcessorResult{Content: strings.TrimSpace(out.String()), MimeType: "text/markdown"}, nil
}

func (e *OfficeDocEngine) extractXlsx(files []*zip.File) (ccore.ProcessorResult, error) {
	sheetFiles := findZipFiles(files, "xl/worksheets/sheet", ".xml")
	sort.Strings(sheetFiles)
	sharedStrings := readSharedStrings(files)

	var out strings.Builder
	for i, name := range sheetFiles {
		raw, err := readZipFile(files, name)
		if err != nil {
			continue
		}
		rows := extractSheetRows(raw, sharedStrings)
		if len(rows) == 0 {
			continue
		}
		out.WriteString(fmt.Sprintf("## Sheet %d\n\n", i+1))
		for _, row := range rows {
			out.WriteString("| ")
			out.WriteString(strings.Join(row, " | "))
			out.WriteString(" |\n")
		}
		out.WriteString("\n")
	}
	return ccore.ProcessorResult{Content: strings.TrimSpace(out.String()), MimeType: "text/markdown"}, nil
}

// ---------- zip/xml helpers, grounded on the teacher's outline.office.go ----------

func hasZipFile(files []*zip.File, target string) bool {
	for _, f := range files {
		if f != nil && strings.EqualFold(strings.TrimSpace(f.Name), target) {
			return true
		}
	}
	return false
}

func readZipFile(files []*zip.File, target string) ([]byte, error) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(target)) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found: %s", target)
}

func findZipFiles(files []*zip.File, prefix, suffix string) []string {
	var out []string
	for _, f := range files {
		if f == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if strings.HasPrefix(name, strings.ToLower(prefix)) && strings.HasSuffix(name, suffix) {
			out = append(out, f.Name)
		}
	}
	return out
}

type docxParagraph struct {
	Style string
	Text  string
}

func extractParagraphs(body []byte) []docxParagraph {
	if len(body) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	var inParagraph, inText bool
	var style string
	var text strings.Builder
	var out []docxParagraph

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph, inText = true, false
				style = ""
				text.Reset()
			case "pStyle":
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "val") {
						style = strings.TrimSpace(a.Value)
					}
				}
			case "t":
				inText = inParagraph
			}
		case xml.CharData:
			if inParagraph && inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					out = append(out, docxParagraph{Style: style, Text: strings.TrimSpace(text.String())})
					inParagraph = false
				}
			}
		}
	}
	return out
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return strings.Contains(s, "heading") || strings.Contains(s, "title")
}

// extractAllText walks any OpenXML part and concatenates every <a:t>/<t>
// text run, used for slide and generic text extraction where paragraph
// structure doesn't matter.
func extractAllText(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var inText bool
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				out.Write(t)
				out.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		}
	}
	return out.String()
}

func readSharedStrings(files []*zip.File) []string {
	raw, err := readZipFile(files, "xl/sharedStrings.xml")
	if err != nil {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var inText bool
	var cur strings.Builder
	var out []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "si" {
				cur.Reset()
			}
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "si" {
				out = append(out, cur.String())
			}
		}
	}
	return out
}

func extractSheetRows(body []byte, sharedStrings []string) [][]string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var rows [][]string
	var curRow []string
	var cellType string
	var inValue bool
	var val strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				curRow = nil
			case "c":
				cellType = ""
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v":
				inValue = true
				val.Reset()
			}
		case xml.CharData:
			if inValue {
				val.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v":
				inValue = false
				cellVal := val.String()
				if cellType == "s" {
					if idx, convErr := parseIntSafe(cellVal); convErr == nil && idx >= 0 && idx < len(sharedStrings) {
						cellVal = sharedStrings[idx]
					}
				}
				curRow = append(curRow, cellVal)
			case "row":
				if len(curRow) > 0 {
					rows = append(rows, curRow)
				}
			}
		}
	}
	return rows
}

func parseIntSafe(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
