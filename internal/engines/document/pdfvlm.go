// PdfVlm implements the vision-language PDF pipeline from spec §4.5: it
// rasterizes each page to an image and sends each page image to the
// configured VLM provider, which makes the remote captioning call. There
// is one execution path: no in-process local model mode and no option to
// choose between modes. Page rasterization shells out to pdftoppm
// (poppler-utils), whose presence is checked with exec.LookPath.
package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/tempfile"
	"github.com/lfnovo/content-core/internal/providers/vlm"
)

type PdfVlmEngine struct {
	vlmProvider  vlm.Provider
	pdftoppmPath string
}

func NewPdfVlmEngine(provider vlm.Provider) *PdfVlmEngine {
	return &PdfVlmEngine{vlmProvider: provider, pdftoppmPath: "pdftoppm"}
}

func (e *PdfVlmEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:         "pdf_vlm",
		MimeTypes:    []ccore.MimeType{"application/pdf"},
		Extensions:   []string{".pdf"},
		Priority:     70,
		RequiredDeps: []string{"pdftoppm"},
		Category:     ccore.CategoryDocuments,
	}
}

func (e *PdfVlmEngine) IsAvailable(ctx context.Context) bool {
	if e.vlmProvider == nil || !e.vlmProvider.IsAvailable(ctx) {
		return false
	}
	_, err := exec.LookPath(e.pdftoppmPath)
	return err == nil
}

func (e *PdfVlmEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "pdf_vlm requires a file path source")
	}

	var result ccore.ProcessorResult
	err := tempfile.WithScope("pdf_vlm", func(scope *tempfile.Scope) error {
		pagesDir, err := scope.SubDir("pages")
		if err != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "pdf_vlm", err, "create scratch dir")
		}

		renderCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		cmd := exec.CommandContext(renderCtx, e.pdftoppmPath, "-png", "-r", "150", source.FilePath, filepath.Join(pagesDir, "page"))
		out, cmdErr := cmd.CombinedOutput()
		if cmdErr != nil {
			return ccerr.Wrap(ccerr.ParseError, "pdf_vlm", fmt.Errorf("%w: %s", cmdErr, string(out)), "rasterize pdf")
		}

		entries, readErr := os.ReadDir(pagesDir)
		if readErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "pdf_vlm", readErr, "list rasterized pages")
		}
		var pageFiles []string
		for _, ent := range entries {
			if strings.HasSuffix(ent.Name(), ".png") {
				pageFiles = append(pageFiles, filepath.Join(pagesDir, ent.Name()))
			}
		}
		sort.Strings(pageFiles)
		if len(pageFiles) == 0 {
			return ccerr.New(ccerr.ParseError, "pdftoppm produced no pages").WithEngine("pdf_vlm")
		}

		var out2 strings.Builder
		for i, path := range pageFiles {
			if ctx.Err() != nil {
				return ccerr.Wrap(ccerr.Cancelled, "pdf_vlm", ctx.Err(), "cancelled during page captioning")
			}
			img, readErr := os.ReadFile(path)
			if readErr != nil {
				continue
			}
			caption, descErr := e.vlmProvider.Describe(ctx, img, "image/png", "")
			if descErr != nil {
				return descErr
			}
			if out2.Len() > 0 {
				out2.WriteString("\n\n")
			}
			out2.WriteString(fmt.Sprintf("## Page %d\n\n%s", i+1, strings.TrimSpace(caption)))
		}

		result = ccore.ProcessorResult{
			Content:  out2.String(),
			MimeType: "text/markdown",
			Metadata: map[string]any{"page_count": len(pageFiles), "vlm_provider": e.vlmProvider.Name()},
		}
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return result, nil
}
