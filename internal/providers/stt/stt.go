// Package stt defines the speech-to-text provider boundary used by the
// audio/video engines, plus two concrete implementations: Google Cloud
// Speech-to-Text (long-running recognize) and OpenAI Whisper. Grounded
// on the teacher's internal/clients/gcp.Speech client.
package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/ctxutil"
	"github.com/lfnovo/content-core/internal/platform/logger"
)

// Config is a single segment's transcription request parameters. Every
// provider must honor LanguageCode when set and ignore fields it has no
// equivalent for.
type Config struct {
	LanguageCode string
	Model        string
	SampleRateHz int
}

// Result is one provider call's transcription output.
type Result struct {
	Provider string
	Text     string
	Segments []ccore.Segment
}

// Provider transcribes one already-cut audio segment (WAV bytes) into
// text. Engines are responsible for segmentation; providers only see one
// segment at a time, which keeps the admission-gate concurrency model in
// the audio engine provider-agnostic.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Transcribe(ctx context.Context, audio []byte, mimeType string, cfg Config) (Result, error)
	Close() error
}

// ---------- Google Cloud Speech-to-Text ----------

type gcpSpeech struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
}

// NewGCPSpeech constructs the Speech client eagerly; callers typically
// build this once at startup and rely on IsAvailable for readiness
// rather than retrying construction per call.
func NewGCPSpeech(ctx context.Context, log *logger.Logger, opts ...option.ClientOption) (Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("stt: gcp speech client: %w", err)
	}
	return &gcpSpeech{log: log.With("provider", "gcp_speech"), client: c, maxRetries: 4}, nil
}

func (g *gcpSpeech) Name() string { return "gcp_speech" }

func (g *gcpSpeech) IsAvailable(ctx context.Context) bool { return g.client != nil }

func (g *gcpSpeech) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *gcpSpeech) Transcribe(ctx context.Context, audio []byte, mimeType string, cfg Config) (Result, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	if len(audio) == 0 {
		return Result{Provider: g.Name()}, nil
	}

	lang := cfg.LanguageCode
	if lang == "" {
		lang = "en-US"
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               lang,
			Model:                      cfg.Model,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			Encoding:                   inferEncoding(mimeType),
			SampleRateHertz:            int32(cfg.SampleRateHz),
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	resp, err := g.retry(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := g.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return Result{}, classifyGRPC(g.Name(), err)
	}
	return parseResponse(g.Name(), resp), nil
}

func inferEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func parseResponse(provider string, resp *speechpb.LongRunningRecognizeResponse) Result {
	out := Result{Provider: provider}
	if resp == nil || len(resp.Results) == 0 {
		return out
	}
	var full strings.Builder
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		txt := strings.TrimSpace(r.Alternatives[0].Transcript)
		if txt == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(txt)

		var segStart, segEnd float64
		words := r.Alternatives[0].Words
		if len(words) > 0 {
			segStart = durToSec(words[0].StartTime)
			segEnd = durToSec(words[len(words)-1].EndTime)
		}
		out.Segments = append(out.Segments, ccore.Segment{
			Text:     txt,
			StartSec: ptr(segStart),
			EndSec:   ptr(segEnd),
			Metadata: map[string]any{"provider": provider},
		})
	}
	out.Text = strings.TrimSpace(full.String())
	return out
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (g *gcpSpeech) retry(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := 750 * time.Millisecond
	var last error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err
		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == g.maxRetries {
			break
		}
		if sleepErr := ctxutil.Sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff = time.Duration(math.Min(float64(backoff*2), float64(10*time.Second)))
	}
	return nil, last
}

func classifyGRPC(engine string, err error) error {
	code := status.Code(err)
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ccerr.Wrap(ccerr.NetworkError, engine, err, "speech recognize")
	case codes.ResourceExhausted:
		return ccerr.Wrap(ccerr.RateLimitError, engine, err, "speech recognize")
	case codes.Unauthenticated, codes.PermissionDenied:
		return ccerr.Wrap(ccerr.AuthError, engine, err, "speech recognize")
	default:
		return ccerr.Wrap(ccerr.TranscriptionError, engine, err, "speech recognize")
	}
}

func ptr(v float64) *float64 { return &v }

// ---------- OpenAI Whisper ----------

type openaiWhisper struct {
	log    *logger.Logger
	client *openai.Client
	model  string
}

// NewOpenAIWhisper wraps the go-openai client's audio transcription
// endpoint. model defaults to "whisper-1" when empty.
func NewOpenAIWhisper(apiKey string, log *logger.Logger, model string) Provider {
	if log == nil {
		log = logger.Nop()
	}
	if model == "" {
		model = "whisper-1"
	}
	return &openaiWhisper{
		log:    log.With("provider", "openai_whisper"),
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *openaiWhisper) Name() string { return "openai_whisper" }

func (o *openaiWhisper) IsAvailable(ctx context.Context) bool { return o.client != nil }

func (o *openaiWhisper) Close() error { return nil }

func (o *openaiWhisper) Transcribe(ctx context.Context, audio []byte, mimeType string, cfg Config) (Result, error) {
	if len(audio) == 0 {
		return Result{Provider: o.Name()}, nil
	}
	model := o.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	req := openai.AudioRequest{
		Model:    model,
		FilePath: "segment.wav",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: cfg.LanguageCode,
	}
	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return Result{}, classifyOpenAI(o.Name(), err)
	}

	out := Result{Provider: o.Name(), Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		start := seg.Start
		end := seg.End
		out.Segments = append(out.Segments, ccore.Segment{
			Text:     strings.TrimSpace(seg.Text),
			StartSec: &start,
			EndSec:   &end,
			Metadata: map[string]any{"provider": o.Name()},
		})
	}
	return out, nil
}

func classifyOpenAI(engine string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return ccerr.Wrap(ccerr.AuthError, engine, err, "whisper transcription")
		case 429:
			return ccerr.Wrap(ccerr.RateLimitError, engine, err, "whisper transcription")
		case 408:
			return ccerr.Wrap(ccerr.Timeout, engine, err, "whisper transcription")
		}
		if apiErr.HTTPStatusCode >= 500 {
			return ccerr.Wrap(ccerr.NetworkError, engine, err, "whisper transcription")
		}
	}
	return ccerr.Wrap(ccerr.TranscriptionError, engine, err, "whisper transcription")
}
