package codec

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"hark/blob"
)

// writeScript drops an executable shell script into dir so the transcoder
// can run it in place of the real ffmpeg/ffprobe binaries.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "upload.ogg")
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func testFFmpeg(blobs blob.Store, ffmpeg, ffprobe string) *FFmpeg {
	return &FFmpeg{
		Blobs:       blobs,
		Logger:      log.New(io.Discard),
		FFmpegPath:  ffmpeg,
		FFprobePath: ffprobe,
	}
}

// brokenSink refuses every write and records whether the transcoder
// aborted it.
type brokenSink struct {
	mu      sync.Mutex
	aborted bool
}

func (s *brokenSink) Write(p []byte) (int, error) {
	return 0, errors.New("storage write refused")
}

func (s *brokenSink) Close() error { return nil }

func (s *brokenSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	return nil
}

func (s *brokenSink) wasAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

type brokenSinkStore struct {
	blob.Store
	sink *brokenSink
}

func (s *brokenSinkStore) Put(context.Context, string) (blob.Writer, error) {
	return s.sink, nil
}

func TestTranscodeToStorageCommitsConvertedObject(t *testing.T) {
	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", "echo 10.0\n")
	ffmpeg := writeScript(t, dir, "ffmpeg",
		"printf 'RIFF-mono-wav'\n"+
			"printf 'out_time_us=5000000\\nprogress=continue\\n' >&2\n"+
			"exit 0\n")

	blobs := blob.NewMemory()
	f := testFFmpeg(blobs, ffmpeg, ffprobe)

	var fractions []float64
	err := f.TranscodeToStorage(context.Background(), writeInput(t, dir),
		"converted.wav", func(fraction float64) {
			fractions = append(fractions, fraction)
		})
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}

	data, ok := blobs.Object("converted.wav")
	if !ok {
		t.Fatal("converted object was not committed")
	}
	if string(data) != "RIFF-mono-wav" {
		t.Errorf("object contents = %q", data)
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1 {
		t.Errorf("progress fractions = %v, want final 1", fractions)
	}
}

func TestTranscodeToStorageSinkFailure(t *testing.T) {
	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", "echo 10.0\n")
	// Streams output indefinitely, the way ffmpeg keeps producing frames
	// long after the first write into storage has already failed.
	ffmpeg := writeScript(t, dir, "ffmpeg",
		"while :; do printf 'xxxxxxxxxxxxxxxx'; done\n")

	sink := &brokenSink{}
	f := testFFmpeg(&brokenSinkStore{sink: sink}, ffmpeg, ffprobe)

	done := make(chan error, 1)
	go func() {
		done <- f.TranscodeToStorage(context.Background(),
			writeInput(t, dir), "converted.wav", nil)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from the failing sink")
		}
		if !strings.Contains(err.Error(), "write converted stream") {
			t.Errorf("error = %v, want the sink write failure", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("transcode did not return after the sink failed")
	}

	if !sink.wasAborted() {
		t.Error("failed transcode did not abort the storage sink")
	}
}

func TestTranscodeToStorageConversionFailure(t *testing.T) {
	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", "echo 10.0\n")
	ffmpeg := writeScript(t, dir, "ffmpeg",
		"echo 'corrupt input' >&2\nexit 1\n")

	blobs := blob.NewMemory()
	f := testFFmpeg(blobs, ffmpeg, ffprobe)

	err := f.TranscodeToStorage(context.Background(), writeInput(t, dir),
		"converted.wav", nil)
	if err == nil {
		t.Fatal("expected an error from the failing conversion")
	}
	if !strings.Contains(err.Error(), "ffmpeg conversion") {
		t.Errorf("error = %v, want the ffmpeg exit failure", err)
	}
	if ok, _ := blobs.Exists(context.Background(), "converted.wav"); ok {
		t.Error("failed conversion left a visible object behind")
	}
}
