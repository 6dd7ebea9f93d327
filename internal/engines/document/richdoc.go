// RichDoc is the "third-party document pipeline" analog from spec
// §4.5: a higher-level composite engine that supports PDF, DOCX, XLSX,
// PPTX, HTML, CSV, and images, delegating to the format-specific engines
// in this package and layering an optional picture-description pass:
// embedded images (docx/pptx media parts) are captioned via a VLM
// provider and attached to metadata, never folded into the exported
// text. When the source file itself is an image, its caption is the
// returned content.
package document

import (
	"archive/zip"
	"context"
	"os"
	"path"
	"strings"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/providers/vlm"
)

type RichDocEngine struct {
	pdf        *PdfLlmEngine
	office     *OfficeDocEngine
	htmlFile   *HtmlFileEngine
	plainText  *PlainTextEngine
	vlm        vlm.Provider
	describeOn bool
}

func NewRichDocEngine(pdf *PdfLlmEngine, office *OfficeDocEngine, htmlFile *HtmlFileEngine, plainText *PlainTextEngine, captioner vlm.Provider, describePictures bool) *RichDocEngine {
	return &RichDocEngine{
		pdf: pdf, office: office, htmlFile: htmlFile, plainText: plainText,
		vlm: captioner, describeOn: describePictures,
	}
}

func (e *RichDocEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name: "rich_doc",
		MimeTypes: []ccore.MimeType{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"text/html", "text/csv", "image/*",
		},
		Extensions: []string{".pdf", ".docx", ".pptx", ".xlsx", ".html", ".htm", ".csv", ".png", ".jpg", ".jpeg"},
		Priority:   80,
		Category:   ccore.CategoryDocuments,
	}
}

func (e *RichDocEngine) IsAvailable(ctx context.Context) bool {
	return e.pdf != nil || e.office != nil || e.htmlFile != nil
}

func (e *RichDocEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "rich_doc requires a file path source")
	}
	ext := strings.ToLower(path.Ext(source.FilePath))

	var result ccore.ProcessorResult
	var err error
	switch ext {
	case ".pdf":
		result, err = e.pdf.Extract(ctx, source, options)
	case ".docx", ".pptx", ".xlsx", ".doc", ".ppt", ".xls":
		result, err = e.office.Extract(ctx, source, options)
	case ".html", ".htm":
		result, err = e.htmlFile.Extract(ctx, source, options)
	case ".csv", ".txt":
		result, err = e.plainText.Extract(ctx, source, options)
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return e.extractImage(ctx, source)
	default:
		return ccore.ProcessorResult{}, ccerr.Newf(ccerr.UnsupportedContentError, "rich_doc: unsupported extension %q", ext)
	}
	if err != nil {
		return ccore.ProcessorResult{}, err
	}

	if e.describeOn && e.vlm != nil && (ext == ".docx" || ext == ".pptx") {
		captions, capErr := e.captionEmbeddedMedia(ctx, source.FilePath)
		if capErr == nil && len(captions) > 0 {
			if result.Metadata == nil {
				result.Metadata = map[string]any{}
			}
			result.Metadata["picture_descriptions"] = captions
		} else if capErr != nil {
			result.Warnings = append(result.Warnings, "picture description failed: "+capErr.Error())
		}
	}
	return result, nil
}

func (e *RichDocEngine) extractImage(ctx context.Context, source ccore.Source) (ccore.ProcessorResult, error) {
	img, err := os.ReadFile(source.FilePath)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.NotFoundError, "rich_doc", err, "read image file")
	}
	if e.vlm == nil {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.EngineUnavailable, "rich_doc: no captioning provider configured for images")
	}
	ext := strings.ToLower(path.Ext(source.FilePath))
	mime := "image/" + strings.TrimPrefix(ext, ".")
	caption, err := e.vlm.Describe(ctx, img, mime, "")
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return ccore.ProcessorResult{Content: caption, MimeType: "text/markdown"}, nil
}

// captionEmbeddedMedia scans a docx/pptx zip package's media part
// (word/media/* or ppt/media/*) and captions each image, keyed by part
// name, without pulling any of the text back into the document body.
func (e *RichDocEngine) captionEmbeddedMedia(ctx context.Context, filePath string) (map[string]string, error) {
	rc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out := map[string]string{}
	for _, f := range rc.File {
		name := f.Name
		if !strings.Contains(name, "media/") {
			continue
		}
		lower := strings.ToLower(name)
		var mime string
		switch {
		case strings.HasSuffix(lower, ".png"):
			mime = "image/png"
		case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
			mime = "image/jpeg"
		default:
			continue
		}
		rc2, openErr := f.Open()
		if openErr != nil {
			continue
		}
		img := make([]byte, f.UncompressedSize64)
		_, _ = rc2.Read(img)
		rc2.Close()

		caption, descErr := e.vlm.Describe(ctx, img, mime, "")
		if descErr != nil {
			continue
		}
		out[name] = caption
	}
	return out, nil
}
