// Package audio implements the audio transcription pipeline from spec
// §4.6: segmentation above a ten-minute duration threshold, bounded-
// concurrency fan-out transcription over an admission gate, and ordered
// reassembly regardless of completion order. Grounded on the teacher's
// ffmpeg-backed media tooling (internal/platform/exectool) for cutting
// segments and golang.org/x/sync/semaphore for the admission gate, the
// same concurrency primitive used in the teacher's worker-pool code.
package audio

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/exectool"
	"github.com/lfnovo/content-core/internal/platform/httpx"
	"github.com/lfnovo/content-core/internal/platform/logger"
	"github.com/lfnovo/content-core/internal/platform/tempfile"
	"github.com/lfnovo/content-core/internal/providers/stt"
)

const segmentThresholdSec = 10 * 60
const targetSegmentLenSec = 8 * 60

const (
	defaultConcurrency = 3
	minConcurrency     = 1
	maxConcurrency     = 10
)

// ResolveConcurrency returns the default (3) without logging for
// anything <= 0 (unset), and falls back to the default with a warning
// for values above 10. Invalid CCORE_AUDIO_CONCURRENCY env values are
// warned about when config.Builder builds the snapshot.
func ResolveConcurrency(requested int, log *logger.Logger) int {
	if requested <= 0 {
		return defaultConcurrency
	}
	if requested < minConcurrency || requested > maxConcurrency {
		if log != nil {
			log.Warn("audio.concurrency out of range, falling back to default", "requested", requested, "default", defaultConcurrency)
		}
		return defaultConcurrency
	}
	return requested
}

type providerSelector interface {
	Select(name string) (stt.Provider, bool)
	Default() stt.Provider
}

// Registry is the narrow provider lookup the engine needs; it is
// satisfied by a small map built at registration time rather than by
// the main processor registry, since STT providers aren't Processors.
type Registry struct {
	byName  map[string]stt.Provider
	primary stt.Provider
}

func NewRegistry(primary stt.Provider, others ...stt.Provider) *Registry {
	r := &Registry{byName: map[string]stt.Provider{}, primary: primary}
	if primary != nil {
		r.byName[primary.Name()] = primary
	}
	for _, p := range others {
		r.byName[p.Name()] = p
	}
	return r
}

func (r *Registry) Select(name string) (stt.Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) Default() stt.Provider { return r.primary }

type AudioEngine struct {
	ffmpeg   exectool.FFmpeg
	registry providerSelector
	log      *logger.Logger
	backoff  httpx.BackoffConfig
}

func NewAudioEngine(ffmpeg exectool.FFmpeg, registry *Registry, log *logger.Logger) *AudioEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &AudioEngine{ffmpeg: ffmpeg, registry: registry, log: log, backoff: httpx.DefaultBackoff()}
}

func (e *AudioEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:         "audio_transcriber",
		MimeTypes:    []ccore.MimeType{"audio/*"},
		Priority:     50,
		RequiredDeps: []string{"ffmpeg"},
		Category:     ccore.CategoryAudio,
	}
}

func (e *AudioEngine) IsAvailable(ctx context.Context) bool {
	if e.ffmpeg == nil || e.ffmpeg.AssertReady(ctx) != nil {
		return false
	}
	return e.registry != nil && e.registry.Default() != nil
}

func (e *AudioEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "audio_transcriber requires a file path source")
	}

	provider, overrideErr := e.selectProvider(source)
	if overrideErr != nil {
		return ccore.ProcessorResult{}, overrideErr
	}

	var result ccore.ProcessorResult
	err := tempfile.WithScope("audio", func(scope *tempfile.Scope) error {
		probe, err := e.ffmpeg.Probe(ctx, source.FilePath)
		if err != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "audio_transcriber", err, "probe audio duration")
		}

		bounds := planSegments(probe.DurationSec)
		concurrency := ResolveConcurrency(source.AudioConcurrency, e.log)

		texts := make([]string, len(bounds))
		var failuresMu sync.Mutex
		failures := make([]ccerr.SegmentFailure, 0)

		sem := semaphore.NewWeighted(int64(concurrency))
		segCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		errs := make(chan error, len(bounds))
		for i, b := range bounds {
			i, b := i, b
			if acqErr := sem.Acquire(segCtx, 1); acqErr != nil {
				errs <- acqErr
				continue
			}
			go func() {
				defer sem.Release(1)
				text, segErr := e.transcribeSegment(segCtx, scope, source, provider, i, b)
				if segErr != nil {
					failuresMu.Lock()
					failures = append(failures, ccerr.SegmentFailure{Index: i, Kind: ccerr.KindOf(segErr), Message: segErr.Error()})
					failuresMu.Unlock()
					errs <- nil
					return
				}
				texts[i] = text
				errs <- nil
			}()
		}
		for range bounds {
			if err := <-errs; err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return ccerr.Wrap(ccerr.Cancelled, "audio_transcriber", ctx.Err(), "cancelled during segment transcription")
		}
		if len(failures) > 0 {
			return &ccerr.TranscriptionFailedError{Failures: failures}
		}

		result = ccore.ProcessorResult{
			Content:  strings.Join(texts, "\n"),
			MimeType: "text/plain",
			Metadata: map[string]any{
				"segment_count":           len(bounds),
				"duration_sec":            probe.DurationSec,
				"concurrency":             concurrency,
				"transcription_provider": provider.Name(),
			},
		}
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return result, nil
}

// selectProvider honors source.AudioProvider/AudioModel as a "both-or-
// neither" pair (spec §9 open question resolved in DESIGN.md): if only
// one of the two is set, the override is dropped with a warning and the
// engine falls back to the registry default.
func (e *AudioEngine) selectProvider(source ccore.Source) (stt.Provider, error) {
	if source.AudioProvider == "" && source.AudioModel == "" {
		if p := e.registry.Default(); p != nil {
			return p, nil
		}
		return nil, ccerr.New(ccerr.EngineUnavailable, "no default stt provider configured").WithEngine("audio_transcriber")
	}
	if source.AudioProvider == "" || source.AudioModel == "" {
		e.log.Warn("audio provider/model override requires both fields, ignoring partial override", "provider", source.AudioProvider, "model", source.AudioModel)
		if p := e.registry.Default(); p != nil {
			return p, nil
		}
		return nil, ccerr.New(ccerr.EngineUnavailable, "no default stt provider configured").WithEngine("audio_transcriber")
	}
	p, ok := e.registry.Select(source.AudioProvider)
	if !ok {
		return nil, ccerr.Newf(ccerr.EngineUnavailable, "stt provider %q not registered", source.AudioProvider).WithEngine("audio_transcriber")
	}
	return p, nil
}

type segmentBounds struct {
	startSec float64
	lenSec   float64
}

// planSegments splits a duration into contiguous, roughly equal-length
// segments once it exceeds the ten-minute threshold; short files get a
// single segment spanning the whole file (spec §4.6 "short files bypass
// segmentation").
func planSegments(durationSec float64) []segmentBounds {
	if durationSec <= segmentThresholdSec {
		return []segmentBounds{{startSec: 0, lenSec: durationSec}}
	}
	n := int(durationSec/targetSegmentLenSec) + 1
	if n < 2 {
		n = 2
	}
	per := durationSec / float64(n)
	bounds := make([]segmentBounds, n)
	start := 0.0
	for i := 0; i < n; i++ {
		length := per
		if i == n-1 {
			length = durationSec - start
		}
		bounds[i] = segmentBounds{startSec: start, lenSec: length}
		start += length
	}
	return bounds
}

func (e *AudioEngine) transcribeSegment(ctx context.Context, scope *tempfile.Scope, source ccore.Source, provider stt.Provider, index int, b segmentBounds) (string, error) {
	segPath := scope.Path(fmt.Sprintf("segment_%03d.wav", index))
	if err := e.ffmpeg.CutSegment(ctx, source.FilePath, segPath, b.startSec, b.lenSec); err != nil {
		return "", ccerr.Wrap(ccerr.FatalInternal, "audio_transcriber", err, fmt.Sprintf("cut segment %d", index))
	}
	audioBytes, err := os.ReadFile(segPath)
	if err != nil {
		return "", ccerr.Wrap(ccerr.FatalInternal, "audio_transcriber", err, fmt.Sprintf("read segment %d", index))
	}

	cfg := stt.Config{SampleRateHz: 16000}
	if source.AudioProvider != "" && source.AudioModel != "" {
		cfg.Model = source.AudioModel
	}

	var result stt.Result
	retryErr := httpx.Retry(ctx, e.backoff, func(err error) bool { return ccerr.KindOf(err).Retryable() }, func(ctx context.Context) error {
		r, transcribeErr := provider.Transcribe(ctx, audioBytes, "audio/wav", cfg)
		if transcribeErr != nil {
			return transcribeErr
		}
		result = r
		return nil
	})
	if retryErr != nil {
		return "", retryErr
	}
	return result.Text, nil
}
