package blob

import (
	"context"
	"testing"
)

func TestMemoryObjectVisibleOnlyAfterClose(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	w, err := m.Put(ctx, "converted/a.wav")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	w.Write([]byte("RIFF"))

	ok, _ := m.Exists(ctx, "converted/a.wav")
	if ok {
		t.Error("object visible before Close")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ok, _ = m.Exists(ctx, "converted/a.wav")
	if !ok {
		t.Error("object not visible after Close")
	}

	data, _ := m.Object("converted/a.wav")
	if string(data) != "RIFF" {
		t.Errorf("object bytes = %q", data)
	}
}

func TestMemoryAbortDiscardsObject(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	w, _ := m.Put(ctx, "converted/a.wav")
	w.Write([]byte("partial"))
	if err := w.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	w.Close()

	ok, _ := m.Exists(ctx, "converted/a.wav")
	if ok {
		t.Error("aborted object still visible")
	}
}

func TestDirWriteExistsDelete(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("new dir: %v", err)
	}

	w, err := d.Put(ctx, "converted/a.wav")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	w.Write([]byte("RIFF"))

	if ok, _ := d.Exists(ctx, "converted/a.wav"); ok {
		t.Error("object visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ok, _ := d.Exists(ctx, "converted/a.wav"); !ok {
		t.Error("object not visible after Close")
	}

	if err := d.Delete(ctx, "converted/a.wav"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := d.Exists(ctx, "converted/a.wav"); ok {
		t.Error("object visible after Delete")
	}
}
