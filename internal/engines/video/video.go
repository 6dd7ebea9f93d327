// Package video implements the video extraction pipeline from spec
// §4.6(b): demux the video's audio track to a scoped temp WAV file via
// ffmpeg and re-enter the audio pipeline on it. When a GCP Video
// Intelligence provider is configured and the source carries a gs://
// staging URI in options["gcs_uri"], its shot/text/speech annotation
// supplements the transcript (off by default, per SUPPLEMENTED FEATURES).
package video

import (
	"context"
	"fmt"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/exectool"
	"github.com/lfnovo/content-core/internal/platform/tempfile"
	"github.com/lfnovo/content-core/internal/providers/videoai"
)

// AudioExtractor is the narrow slice of the audio engine this package
// re-enters after demuxing; satisfied by *audio.AudioEngine.
type AudioExtractor interface {
	Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error)
}

type VideoEngine struct {
	ffmpeg  exectool.FFmpeg
	audio   AudioExtractor
	videoAI videoai.Provider
}

func NewVideoEngine(ffmpeg exectool.FFmpeg, audio AudioExtractor, videoAI videoai.Provider) *VideoEngine {
	return &VideoEngine{ffmpeg: ffmpeg, audio: audio, videoAI: videoAI}
}

func (e *VideoEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:         "video_demux",
		MimeTypes:    []ccore.MimeType{"video/*"},
		Priority:     50,
		RequiredDeps: []string{"ffmpeg"},
		Category:     ccore.CategoryVideo,
	}
}

func (e *VideoEngine) IsAvailable(ctx context.Context) bool {
	return e.ffmpeg != nil && e.ffmpeg.AssertReady(ctx) == nil && e.audio != nil
}

func (e *VideoEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.FilePath == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "video_demux requires a file path source")
	}

	var result ccore.ProcessorResult
	err := tempfile.WithScope("video_demux", func(scope *tempfile.Scope) error {
		audioPath := scope.Path("audio.wav")
		if err := e.ffmpeg.ExtractAudio(ctx, source.FilePath, audioPath); err != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "video_demux", err, "extract audio track")
		}

		audioSource := source
		audioSource.FilePath = audioPath
		audioSource.DeclaredMimeType = "audio/wav"

		audioResult, err := e.audio.Extract(ctx, audioSource, options)
		if err != nil {
			return err
		}

		result = audioResult
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata["demuxed_from"] = source.FilePath

		if gcsURI, ok := options["gcs_uri"].(string); ok && gcsURI != "" && e.videoAI != nil && e.videoAI.IsAvailable(ctx) {
			langCode, _ := options["language_code"].(string)
			annotation, annErr := e.videoAI.AnnotateGCS(ctx, gcsURI, langCode)
			if annErr != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("video intelligence supplement failed: %v", annErr))
			} else {
				result.Metadata["video_intelligence"] = map[string]any{
					"on_screen_text_segments": len(annotation.OnScreenText),
					"shot_segments":           len(annotation.Shots),
				}
				if annotation.PrimaryText != "" {
					result.Content = result.Content + "\n\n" + annotation.PrimaryText
				}
			}
		}
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return result, nil
}
