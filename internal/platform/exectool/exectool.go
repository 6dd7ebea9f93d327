// Package exectool wraps system binary invocations (ffmpeg) the audio and
// video engines depend on. Grounded on the teacher's
// internal/platform/localmedia.Tools, trimmed to the single binary this
// module's pipelines actually shell out to.
package exectool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lfnovo/content-core/internal/platform/ctxutil"
)

// FFmpeg is the subset of ffmpeg invocations the audio/video engines need:
// probing duration, cutting a time range, and demuxing a video's audio
// track to a mono 16kHz WAV file suitable for STT backends.
type FFmpeg interface {
	AssertReady(ctx context.Context) error
	Probe(ctx context.Context, mediaPath string) (Probe, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	CutSegment(ctx context.Context, audioPath, outPath string, startSec, durationSec float64) error
}

type Probe struct {
	DurationSec float64
}

type ffmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

func New() FFmpeg {
	return &ffmpeg{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		timeout:     15 * time.Minute,
	}
}

func (f *ffmpeg) AssertReady(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	for _, bin := range []string{f.ffmpegPath, f.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (f *ffmpeg) Probe(ctx context.Context, mediaPath string) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe failed: %w", err)
	}
	var dur float64
	if _, scanErr := fmt.Sscanf(string(out), "%f", &dur); scanErr != nil {
		return Probe{}, fmt.Errorf("ffprobe: unparsable duration output %q: %w", string(out), scanErr)
	}
	return Probe{DurationSec: dur}, nil
}

func (f *ffmpeg) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), f.timeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for extracted audio: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y", "-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg audio demux failed: %w; out=%s", err, string(out))
	}
	return nil
}

func (f *ffmpeg) CutSegment(ctx context.Context, audioPath, outPath string, startSec, durationSec float64) error {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), f.timeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for segment: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-i", audioPath,
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg segment cut failed: %w; out=%s", err, string(out))
	}
	return nil
}
