package blob

import (
	"bytes"
	"context"
	"sync"
)

// Store is the object storage surface the pipeline needs: streaming writes,
// existence checks for the durability poll, and deletes. Keys are opaque
// object names; URI renders the reference handed to the recognition engine.
type Store interface {
	Put(ctx context.Context, key string) (Writer, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URI(key string) string
}

// Writer is a streaming sink for one object. Close commits the object;
// Abort discards it so a failed write never leaves a partial object behind.
type Writer interface {
	Write(p []byte) (int, error)
	Close() error
	Abort() error
}

// Memory is an in-process Store for tests and the dev server. An object only
// becomes visible to Exists once its writer is closed, mirroring the
// write-then-visible behavior of the real backend.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string) (Writer, error) {
	return &memoryWriter{store: m, key: key}, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) URI(key string) string {
	return "mem://" + key
}

// Object returns a stored object's bytes, for tests and the transcript
// download handler.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

type memoryWriter struct {
	store *Memory
	key   string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memoryWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = w.buf.Bytes()
	return nil
}

func (w *memoryWriter) Abort() error {
	w.done = true
	return nil
}
