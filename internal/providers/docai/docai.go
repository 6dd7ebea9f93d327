// Package docai wraps Google Cloud Document AI's synchronous
// ProcessDocument call, for layout-aware extraction of scanned/complex
// documents (forms, tables) that the fast byte-level PdfText engine
// can't handle. No engine in this module calls it. Grounded on the
// teacher's internal/clients/gcp package's client-construction and
// gRPC-status-classification idiom (speech.go, vision.go), generalized
// to the Document AI API surface the teacher itself never called.
package docai

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	documentaipb "cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lfnovo/content-core/internal/ccerr"
)

type Result struct {
	Text  string
	Pages int
}

// Provider runs one document through a Document AI processor.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Process(ctx context.Context, content []byte, mimeType string) (Result, error)
	Close() error
}

type gcpDocAI struct {
	client    *documentai.DocumentProcessorClient
	processor string // full resource name: projects/.../locations/.../processors/...
}

// NewGCPDocumentAI builds a client bound to a single processor resource
// name, matching the one-processor-per-provider-instance shape the
// registry expects (each engine owns a fixed processor configuration).
func NewGCPDocumentAI(ctx context.Context, processorName string, opts ...option.ClientOption) (Provider, error) {
	if processorName == "" {
		return nil, fmt.Errorf("docai: processor resource name required")
	}
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("docai: client: %w", err)
	}
	return &gcpDocAI{client: c, processor: processorName}, nil
}

func (g *gcpDocAI) Name() string { return "gcp_documentai" }

func (g *gcpDocAI) IsAvailable(ctx context.Context) bool { return g.client != nil }

func (g *gcpDocAI) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *gcpDocAI) Process(ctx context.Context, content []byte, mimeType string) (Result, error) {
	if len(content) == 0 {
		return Result{}, ccerr.New(ccerr.ParseError, "empty document payload")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: g.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: content, MimeType: mimeType},
		},
	}
	resp, err := g.client.ProcessDocument(ctx, req)
	if err != nil {
		return Result{}, classifyGRPC(err)
	}
	doc := resp.GetDocument()
	if doc == nil {
		return Result{}, nil
	}
	return Result{Text: strings.TrimSpace(doc.GetText()), Pages: len(doc.GetPages())}, nil
}

func classifyGRPC(err error) error {
	code := status.Code(err)
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ccerr.Wrap(ccerr.NetworkError, "gcp_documentai", err, "process document")
	case codes.ResourceExhausted:
		return ccerr.Wrap(ccerr.RateLimitError, "gcp_documentai", err, "process document")
	case codes.Unauthenticated, codes.PermissionDenied:
		return ccerr.Wrap(ccerr.AuthError, "gcp_documentai", err, "process document")
	case codes.InvalidArgument:
		return ccerr.Wrap(ccerr.UnsupportedContentError, "gcp_documentai", err, "process document")
	default:
		return ccerr.Wrap(ccerr.ParseError, "gcp_documentai", err, "process document")
	}
}
