// Package ocr defines the OCR provider boundary backed by Google Cloud
// Vision's document text detection, grounded on the teacher's
// internal/clients/gcp.Vision client (trimmed to the synchronous
// byte-content path; the async GCS pipeline is out of scope here since
// this module persists no cloud storage state).
package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/ctxutil"
	"github.com/lfnovo/content-core/internal/platform/logger"
)

type Result struct {
	Provider string
	Text     string
	Pages    []ccore.Segment
}

// Provider runs document text detection over one image's bytes (a
// rendered PDF page, a photo of a document).
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Detect(ctx context.Context, image []byte, page int) (Result, error)
	Close() error
}

type gcpVision struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewGCPVision(ctx context.Context, log *logger.Logger, opts ...option.ClientOption) (Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ocr: gcp vision client: %w", err)
	}
	return &gcpVision{log: log.With("provider", "gcp_vision"), client: c}, nil
}

func (g *gcpVision) Name() string { return "gcp_vision" }

func (g *gcpVision) IsAvailable(ctx context.Context) bool { return g.client != nil }

func (g *gcpVision) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *gcpVision) Detect(ctx context.Context, image []byte, page int) (Result, error) {
	if len(image) == 0 {
		return Result{Provider: g.Name()}, nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image:    &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			},
		},
	}
	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return Result{}, classifyGRPC(g.Name(), err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return Result{Provider: g.Name()}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return Result{}, ccerr.New(ccerr.ParseError, r0.Error.Message).WithEngine(g.Name())
	}
	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return Result{Provider: g.Name()}, nil
	}

	text := collapseWhitespace(fta.Text)
	p := page
	return Result{
		Provider: g.Name(),
		Text:     text,
		Pages: []ccore.Segment{{
			Text:     text,
			Page:     &p,
			Metadata: map[string]any{"provider": g.Name(), "kind": "ocr_text"},
		}},
	}, nil
}

func classifyGRPC(engine string, err error) error {
	code := status.Code(err)
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ccerr.Wrap(ccerr.NetworkError, engine, err, "vision annotate")
	case codes.ResourceExhausted:
		return ccerr.Wrap(ccerr.RateLimitError, engine, err, "vision annotate")
	case codes.Unauthenticated, codes.PermissionDenied:
		return ccerr.Wrap(ccerr.AuthError, engine, err, "vision annotate")
	default:
		return ccerr.Wrap(ccerr.ParseError, engine, err, "vision annotate")
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}
