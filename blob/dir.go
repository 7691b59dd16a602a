package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir stores objects as files under a root directory. Objects are written to
// a temp file and renamed into place on Close, so a half-written object is
// never visible to Exists.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, strings.ReplaceAll(key, "/", "__"))
}

func (d *Dir) Put(_ context.Context, key string) (Writer, error) {
	tmp, err := os.CreateTemp(d.root, ".partial-*")
	if err != nil {
		return nil, fmt.Errorf("create partial object: %w", err)
	}
	return &dirWriter{file: tmp, final: d.path(key)}, nil
}

func (d *Dir) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(d.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (d *Dir) Delete(_ context.Context, key string) error {
	err := os.Remove(d.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Dir) URI(key string) string {
	return "file://" + d.path(key)
}

type dirWriter struct {
	file  *os.File
	final string
	done  bool
}

func (w *dirWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *dirWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.file.Close(); err != nil {
		return err
	}
	return os.Rename(w.file.Name(), w.final)
}

func (w *dirWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.file.Close()
	return os.Remove(w.file.Name())
}
