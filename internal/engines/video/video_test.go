package video

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/exectool"
	"github.com/lfnovo/content-core/internal/providers/videoai"
)

type fakeFFmpeg struct {
	extractErr error
}

func (f *fakeFFmpeg) AssertReady(ctx context.Context) error { return nil }
func (f *fakeFFmpeg) Probe(ctx context.Context, mediaPath string) (exectool.Probe, error) {
	return exectool.Probe{DurationSec: 60}, nil
}
func (f *fakeFFmpeg) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(outPath, []byte("fake wav bytes"), 0o644)
}
func (f *fakeFFmpeg) CutSegment(ctx context.Context, audioPath, outPath string, startSec, durationSec float64) error {
	return nil
}

type fakeAudioExtractor struct {
	result ccore.ProcessorResult
	err    error
	gotSrc ccore.Source
}

func (f *fakeAudioExtractor) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	f.gotSrc = source
	if f.err != nil {
		return ccore.ProcessorResult{}, f.err
	}
	return f.result, nil
}

type fakeVideoAI struct {
	available  bool
	annotation videoai.Result
	err        error
}

func (f *fakeVideoAI) IsAvailable(ctx context.Context) bool { return f.available }
func (f *fakeVideoAI) Close() error                         { return nil }
func (f *fakeVideoAI) AnnotateGCS(ctx context.Context, gcsURI, languageCode string) (videoai.Result, error) {
	if f.err != nil {
		return videoai.Result{}, f.err
	}
	return f.annotation, nil
}

func TestVideoEngineUnavailableWithoutFFmpegOrAudio(t *testing.T) {
	engine := NewVideoEngine(nil, nil, nil)
	if engine.IsAvailable(context.Background()) {
		t.Fatalf("expected video_demux to be unavailable with no ffmpeg or audio delegate")
	}
}

func TestVideoEngineDemuxesAndDelegatesToAudio(t *testing.T) {
	audioExtractor := &fakeAudioExtractor{result: ccore.ProcessorResult{Content: "transcribed audio"}}
	engine := NewVideoEngine(&fakeFFmpeg{}, audioExtractor, nil)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := engine.Extract(context.Background(), ccore.Source{FilePath: path}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Content != "transcribed audio" {
		t.Fatalf("got content %q", result.Content)
	}
	if result.Metadata["demuxed_from"] != path {
		t.Fatalf("got metadata %v", result.Metadata)
	}
	if audioExtractor.gotSrc.DeclaredMimeType != "audio/wav" {
		t.Fatalf("expected demuxed audio source to be declared audio/wav, got %q", audioExtractor.gotSrc.DeclaredMimeType)
	}
}

func TestVideoEngineRequiresFilePath(t *testing.T) {
	engine := NewVideoEngine(&fakeFFmpeg{}, &fakeAudioExtractor{}, nil)
	if _, err := engine.Extract(context.Background(), ccore.Source{}, nil); err == nil {
		t.Fatalf("expected an error when no file path is given")
	}
}

func TestVideoEngineSkipsIntelligenceSupplementWithoutGCSURI(t *testing.T) {
	audioExtractor := &fakeAudioExtractor{result: ccore.ProcessorResult{Content: "audio text"}}
	vai := &fakeVideoAI{available: true}
	engine := NewVideoEngine(&fakeFFmpeg{}, audioExtractor, vai)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := engine.Extract(context.Background(), ccore.Source{FilePath: path}, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, ok := result.Metadata["video_intelligence"]; ok {
		t.Fatalf("expected no video_intelligence supplement without a gcs_uri option")
	}
}

func TestVideoEngineAppendsIntelligenceSupplementWhenGCSURIProvided(t *testing.T) {
	audioExtractor := &fakeAudioExtractor{result: ccore.ProcessorResult{Content: "audio text"}}
	vai := &fakeVideoAI{
		available:  true,
		annotation: videoai.Result{PrimaryText: "on-screen text found", OnScreenText: []ccore.Segment{{}}, Shots: []ccore.Segment{{}, {}}},
	}
	engine := NewVideoEngine(&fakeFFmpeg{}, audioExtractor, vai)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := engine.Extract(context.Background(), ccore.Source{FilePath: path}, map[string]any{"gcs_uri": "gs://bucket/clip.mp4"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Metadata["video_intelligence"] == nil {
		t.Fatalf("expected a video_intelligence supplement, got metadata %v", result.Metadata)
	}
	if !strings.Contains(result.Content, "on-screen text found") {
		t.Fatalf("expected primary text appended to content, got %q", result.Content)
	}
}

func TestVideoEngineSupplementFailureAddsWarningNotError(t *testing.T) {
	audioExtractor := &fakeAudioExtractor{result: ccore.ProcessorResult{Content: "audio text"}}
	vai := &fakeVideoAI{available: true, err: context.DeadlineExceeded}
	engine := NewVideoEngine(&fakeFFmpeg{}, audioExtractor, vai)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result, err := engine.Extract(context.Background(), ccore.Source{FilePath: path}, map[string]any{"gcs_uri": "gs://bucket/clip.mp4"})
	if err != nil {
		t.Fatalf("expected supplement failure to not fail the whole extraction: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected a warning recorded for the failed supplement, got %v", result.Warnings)
	}
}
