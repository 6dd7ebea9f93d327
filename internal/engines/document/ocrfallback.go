package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/platform/tempfile"
	"github.com/lfnovo/content-core/internal/providers/ocr"
)

// pdfOCRFallback implements PdfTextEngine's OCRFallback by rasterizing a
// single page with pdftoppm and handing it to an OCR provider. It backs
// the "formula-heavy page" supplement from spec §4.5 / §9.
type pdfOCRFallback struct {
	ocr          ocr.Provider
	pdftoppmPath string
}

func NewPdfOCRFallback(provider ocr.Provider) OCRFallback {
	return &pdfOCRFallback{ocr: provider, pdftoppmPath: "pdftoppm"}
}

func (f *pdfOCRFallback) RenderAndRecognize(pageIndex int, pdf []byte) (string, error) {
	if f.ocr == nil {
		return "", ccerr.New(ccerr.EngineUnavailable, "no ocr provider configured")
	}
	if _, err := exec.LookPath(f.pdftoppmPath); err != nil {
		return "", ccerr.Wrap(ccerr.EngineUnavailable, "pdf_text", err, "pdftoppm not on PATH")
	}

	var result string
	err := tempfile.WithScope("pdf_ocr_fallback", func(scope *tempfile.Scope) error {
		pdfPath, err := scope.WriteFile("source.pdf", pdf)
		if err != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "pdf_text", err, "stage pdf for rasterization")
		}
		outPrefix := scope.Path("page")
		page := pageIndex + 1

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, f.pdftoppmPath,
			"-png", "-r", "150",
			"-f", fmt.Sprintf("%d", page), "-l", fmt.Sprintf("%d", page),
			pdfPath, outPrefix,
		)
		out, runErr := cmd.CombinedOutput()
		if runErr != nil {
			return ccerr.Wrap(ccerr.ParseError, "pdf_text", fmt.Errorf("%w: %s", runErr, string(out)), "rasterize page for ocr fallback")
		}

		imgPath := fmt.Sprintf("%s-%d.png", outPrefix, page)
		if _, statErr := os.Stat(imgPath); statErr != nil {
			imgPath = fmt.Sprintf("%s-%02d.png", outPrefix, page)
		}
		img, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return ccerr.Wrap(ccerr.ParseError, "pdf_text", readErr, "read rasterized page")
		}

		detected, ocrErr := f.ocr.Detect(context.Background(), img, page)
		if ocrErr != nil {
			return ocrErr
		}
		result = detected.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
