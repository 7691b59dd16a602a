package store

import (
	"context"
	"sync"
)

// Record is a partial set of fields keyed by name. An upsert merges the
// supplied fields into whatever the record already holds.
type Record map[string]any

// Store is durable key-value persistence with merge-upsert semantics.
type Store interface {
	Upsert(ctx context.Context, collection, id string, fields Record) error
	Get(ctx context.Context, collection, id string) (Record, bool, error)
	Query(ctx context.Context, collection string) ([]Record, error)
	Delete(ctx context.Context, collection, id string) error
}

// Memory is an in-process Store. It backs tests and the dev server when no
// database URL is configured.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]map[string]Record
	order map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		data:  make(map[string]map[string]Record),
		order: make(map[string][]string),
	}
}

func (m *Memory) Upsert(
	_ context.Context,
	collection, id string,
	fields Record,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.data[collection]
	if !ok {
		coll = make(map[string]Record)
		m.data[collection] = coll
	}

	rec, ok := coll[id]
	if !ok {
		rec = make(Record)
		coll[id] = rec
		m.order[collection] = append(m.order[collection], id)
	}

	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (m *Memory) Get(
	_ context.Context,
	collection, id string,
) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.data[collection][id]
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (m *Memory) Query(
	_ context.Context,
	collection string,
) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.order[collection]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneRecord(m.data[collection][id]))
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data[collection], id)
	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
