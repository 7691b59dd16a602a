package store

import (
	"context"
	"testing"
)

func TestMemoryMergeUpsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Upsert(ctx, "jobs", "j1", Record{"a": 1}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := m.Upsert(ctx, "jobs", "j1", Record{"b": 2}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rec, ok, err := m.Get(ctx, "jobs", "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}
	if rec["a"] != 1 || rec["b"] != 2 {
		t.Errorf("merge lost fields: %v", rec)
	}
}

func TestMemoryUpsertOverwritesOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Upsert(ctx, "jobs", "j1", Record{"state": "Created", "name": "a.mp3"})
	m.Upsert(ctx, "jobs", "j1", Record{"state": "Uploading"})

	rec, _, _ := m.Get(ctx, "jobs", "j1")
	if rec["state"] != "Uploading" {
		t.Errorf("state = %v, want Uploading", rec["state"])
	}
	if rec["name"] != "a.mp3" {
		t.Errorf("name clobbered: %v", rec["name"])
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Upsert(ctx, "jobs", "j1", Record{"a": 1})
	rec, _, _ := m.Get(ctx, "jobs", "j1")
	rec["a"] = 99

	again, _, _ := m.Get(ctx, "jobs", "j1")
	if again["a"] != 1 {
		t.Errorf("external mutation leaked into store: %v", again["a"])
	}
}

func TestMemoryQueryPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Upsert(ctx, "jobs", "j1", Record{"n": 1})
	m.Upsert(ctx, "jobs", "j2", Record{"n": 2})
	m.Upsert(ctx, "jobs", "j1", Record{"x": true})
	m.Upsert(ctx, "jobs", "j3", Record{"n": 3})

	recs, err := m.Query(ctx, "jobs")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for i, want := range []int{1, 2, 3} {
		if recs[i]["n"] != want {
			t.Errorf("record %d: n = %v, want %d", i, recs[i]["n"], want)
		}
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Upsert(ctx, "jobs", "j1", Record{"a": 1})
	if err := m.Delete(ctx, "jobs", "j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, _ := m.Get(ctx, "jobs", "j1")
	if ok {
		t.Error("record still present after delete")
	}
	recs, _ := m.Query(ctx, "jobs")
	if len(recs) != 0 {
		t.Errorf("query returned %d records after delete", len(recs))
	}
}
