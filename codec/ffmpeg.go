// Package codec streams an uploaded audio file through ffmpeg, producing a
// normalized mono WAV object in blob storage while reporting fractional
// progress.
package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"hark/blob"
)

// FFmpeg converts uploads by piping them through an ffmpeg subprocess. The
// converted stream goes straight into the storage sink; the full converted
// file is never held in memory.
type FFmpeg struct {
	Blobs  blob.Store
	Logger *log.Logger

	// Binary paths, for tests and unusual installs. Empty means $PATH.
	FFmpegPath  string
	FFprobePath string
}

func (f *FFmpeg) ffmpeg() string {
	if f.FFmpegPath != "" {
		return f.FFmpegPath
	}
	return "ffmpeg"
}

func (f *FFmpeg) ffprobe() string {
	if f.FFprobePath != "" {
		return f.FFprobePath
	}
	return "ffprobe"
}

// TranscodeToStorage converts the complete file at inputPath to mono WAV and
// streams it into the blob store under key. onProgress receives fractions in
// [0,1], non-decreasing, at ffmpeg's own reporting granularity. On any error
// the sink is aborted so no partial object becomes visible.
func (f *FFmpeg) TranscodeToStorage(
	ctx context.Context,
	inputPath string,
	key string,
	onProgress func(float64),
) error {
	duration, err := f.probeDuration(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("probe input duration: %w", err)
	}

	sink, err := f.Blobs.Put(ctx, key)
	if err != nil {
		return fmt.Errorf("open storage sink for %s: %w", key, err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpeg(),
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:2",
		"-i", inputPath,
		"-ac", "1",
		"-f", "wav",
		"pipe:1")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sink.Abort()
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		sink.Abort()
		return fmt.Errorf("ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		sink.Abort()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	progressDone := make(chan struct{})
	tracker := newProgressTracker(duration)
	go func() {
		defer close(progressDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			fraction, ok := tracker.observe(scanner.Text())
			if ok && onProgress != nil {
				onProgress(fraction)
			}
		}
	}()

	_, copyErr := io.Copy(sink, stdout)
	if copyErr != nil {
		// ffmpeg is still blocked writing to a stdout nobody reads
		// anymore; kill it so stderr reaches EOF and Wait can reap it.
		cmd.Process.Kill()
	}
	<-progressDone
	waitErr := cmd.Wait()

	if copyErr != nil {
		sink.Abort()
		return fmt.Errorf("write converted stream: %w", copyErr)
	}
	if waitErr != nil {
		sink.Abort()
		return fmt.Errorf("ffmpeg conversion: %w", waitErr)
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("commit converted object %s: %w", key, err)
	}

	if onProgress != nil {
		onProgress(tracker.finish())
	}
	if f.Logger != nil {
		f.Logger.Debug("conversion completed", "input", inputPath, "object", key)
	}
	return nil
}

func (f *FFmpeg) probeDuration(
	ctx context.Context,
	inputPath string,
) (float64, error) {
	out, err := exec.CommandContext(ctx, f.ffprobe(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", inputPath, err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (float64, error) {
	trimmed := strings.TrimSpace(out)
	seconds, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", trimmed, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive input duration %v", seconds)
	}
	return seconds, nil
}
