// Package registerall performs the declarative startup-phase wiring
// named in spec §9 "declarative capability records": construct every
// provider this module knows how to build from environment
// configuration, register every engine into one *registry.Registry, and
// seal it. Grounded on the teacher's service-wiring idiom of building
// provider clients once at startup and threading them into the
// components that need them.
package registerall

import (
	"context"
	"os"
	"strings"

	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/engines/audio"
	"github.com/lfnovo/content-core/internal/engines/document"
	"github.com/lfnovo/content-core/internal/engines/url"
	"github.com/lfnovo/content-core/internal/engines/video"
	"github.com/lfnovo/content-core/internal/engines/youtube"
	"github.com/lfnovo/content-core/internal/platform/exectool"
	"github.com/lfnovo/content-core/internal/platform/gcpcreds"
	"github.com/lfnovo/content-core/internal/platform/logger"
	"github.com/lfnovo/content-core/internal/providers/docai"
	"github.com/lfnovo/content-core/internal/providers/ocr"
	"github.com/lfnovo/content-core/internal/providers/stt"
	"github.com/lfnovo/content-core/internal/providers/videoai"
	"github.com/lfnovo/content-core/internal/providers/vlm"
	"github.com/lfnovo/content-core/internal/registry"
)

// Result bundles the sealed registry with the closer for every
// long-lived client constructed along the way (GCP gRPC connections).
type Result struct {
	Registry *registry.Registry
	Close    func()
}

// Build wires every engine this module ships into a fresh, sealed
// registry. Providers whose credentials are absent from the environment
// are skipped rather than causing Build to fail; the resulting engines
// report IsAvailable() == false and the resolver/router cascade handles
// the rest, per spec §4.1 "Availability check".
func Build(ctx context.Context, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.Nop()
	}
	reg := registry.New()
	var closers []func() error

	ffmpeg := exectool.New()

	openaiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	var whisper stt.Provider
	var visionLLM vlm.Provider
	if openaiKey != "" {
		whisper = stt.NewOpenAIWhisper(openaiKey, log, strings.TrimSpace(os.Getenv("CCORE_WHISPER_MODEL")))
		visionLLM = vlm.NewOpenAIVision(openaiKey, log, strings.TrimSpace(os.Getenv("CCORE_VISION_MODEL")))
	}

	var gcpSpeech stt.Provider
	var gcpOCR ocr.Provider
	var gcpDocAI docai.Provider
	var gcpVideoAI videoai.Provider
	if gcpcreds.Configured() {
		opts := gcpcreds.FromEnv()
		if p, err := stt.NewGCPSpeech(ctx, log, opts...); err == nil {
			gcpSpeech = p
			closers = append(closers, func() error { return closeIfPossible(p) })
		} else {
			log.Warn("gcp speech client unavailable", "error", err)
		}
		if p, err := ocr.NewGCPVision(ctx, log, opts...); err == nil {
			gcpOCR = p
			closers = append(closers, func() error { return closeIfPossible(p) })
		} else {
			log.Warn("gcp vision client unavailable", "error", err)
		}
		if processor := strings.TrimSpace(os.Getenv("CCORE_DOCUMENTAI_PROCESSOR")); processor != "" {
			if p, err := docai.NewGCPDocumentAI(ctx, processor, opts...); err == nil {
				gcpDocAI = p
				closers = append(closers, func() error { return closeIfPossible(p) })
			} else {
				log.Warn("gcp documentai client unavailable", "error", err)
			}
		}
		if p, err := videoai.New(ctx, log, opts...); err == nil {
			gcpVideoAI = p
			closers = append(closers, func() error { return closeIfPossible(p) })
		} else {
			log.Warn("gcp videointelligence client unavailable", "error", err)
		}
	}
	_ = gcpDocAI // reserved: no dedicated engine binds DocumentAI yet beyond the PDF OCR fallback's Vision path; see DESIGN.md.

	sttRegistry := buildSTTRegistry(gcpSpeech, whisper)
	audioEngine := audio.NewAudioEngine(ffmpeg, sttRegistry, log)
	videoEngine := video.NewVideoEngine(ffmpeg, audioEngine, gcpVideoAI)

	var ocrFallback document.OCRFallback
	if gcpOCR != nil {
		ocrFallback = document.NewPdfOCRFallback(gcpOCR)
	}
	pdfText := document.NewPdfTextEngine(ocrFallback, ocrFallback != nil)
	pdfLlm := document.NewPdfLlmEngine(pdfText)
	pdfVlm := document.NewPdfVlmEngine(visionLLM)
	officeDoc := document.NewOfficeDocEngine()
	plainText := document.NewPlainTextEngine()
	htmlFile := document.NewHtmlFileEngine()
	richDoc := document.NewRichDocEngine(pdfLlm, officeDoc, htmlFile, plainText, visionLLM, strings.EqualFold(os.Getenv("CCORE_DESCRIBE_PICTURES"), "true"))

	firecrawl := url.NewFirecrawlEngine(strings.TrimSpace(os.Getenv("FIRECRAWL_API_KEY")), log)
	jina := url.NewJinaEngine(strings.TrimSpace(os.Getenv("JINA_API_KEY")), log)
	// No headless-browser renderer ships with this module (no CDP driver
	// in the dependency set this module draws from); registering it with
	// a nil renderer still lets the cascade enumerate it, and
	// IsAvailable() reports false so resolution collapses past it, per
	// spec §4.4 "cascade collapses naturally".
	headless := url.NewHeadlessEngine(nil)
	basicURL := url.NewBasicEngine()

	preferredLangs := []string{"en"}
	if raw := strings.TrimSpace(os.Getenv("CCORE_YOUTUBE_LANGUAGES")); raw != "" {
		preferredLangs = strings.Split(raw, ",")
	}
	youtubeEngine := youtube.NewYouTubeEngine(preferredLangs)

	processors := []ccore.Processor{
		pdfText, pdfLlm, pdfVlm, officeDoc, plainText, htmlFile, richDoc,
		firecrawl, jina, headless, basicURL,
		audioEngine, videoEngine, youtubeEngine,
	}
	for _, p := range processors {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	reg.Seal()

	return &Result{
		Registry: reg,
		Close: func() {
			for _, c := range closers {
				_ = c()
			}
		},
	}, nil
}

func buildSTTRegistry(gcp, openai stt.Provider) *audio.Registry {
	switch {
	case gcp != nil && openai != nil:
		return audio.NewRegistry(gcp, openai)
	case gcp != nil:
		return audio.NewRegistry(gcp)
	case openai != nil:
		return audio.NewRegistry(openai)
	default:
		return audio.NewRegistry(nil)
	}
}

type closer interface{ Close() error }

func closeIfPossible(v any) error {
	if c, ok := v.(closer); ok {
		return c.Close()
	}
	return nil
}
