// Package catalog keeps the manifest of simulated maps written during a
// run.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/signalsfoundry/freefree-simulator/model"
)

// Entry is a recorded product with its catalog identifier.
type Entry struct {
	ID string
	model.Product
}

// Store records products and lists them back in insertion order.
// Subscribers are called after each successful record.
type Store interface {
	RecordProduct(ctx context.Context, p model.Product) error
	List(ctx context.Context, runID string) ([]Entry, error)
	Subscribe(fn func(Event))
	Close() error
}

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventProductRecorded EventType = iota
)

// Event is emitted to subscribers when a product is recorded.
type Event struct {
	Type  EventType
	Entry Entry
}

// subscribers fans events out synchronously on the recording goroutine.
type subscribers struct {
	mu  sync.Mutex
	fns []func(Event)
}

// Subscribe registers fn to be called after each recorded product.
func (s *subscribers) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

func (s *subscribers) publish(ev Event) {
	s.mu.Lock()
	fns := append([]func(Event){}, s.fns...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Memory is an in-memory, thread-safe Store.
type Memory struct {
	subscribers

	mu      sync.RWMutex
	entries []Entry
	paths   map[string]int
}

// NewMemory constructs an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{paths: make(map[string]int)}
}

// RecordProduct stores p. Recording a path again within the same run
// replaces the earlier entry, matching an overwritten file.
func (m *Memory) RecordProduct(ctx context.Context, p model.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Path == "" {
		return fmt.Errorf("product has no path")
	}

	m.mu.Lock()
	key := p.RunID + "\x00" + p.Path
	entry := Entry{ID: uuid.NewString(), Product: p}
	if i, ok := m.paths[key]; ok {
		entry.ID = m.entries[i].ID
		m.entries[i] = entry
	} else {
		m.paths[key] = len(m.entries)
		m.entries = append(m.entries, entry)
	}
	m.mu.Unlock()

	m.publish(Event{Type: EventProductRecorded, Entry: entry})
	return nil
}

// List returns the entries of runID, or all entries when runID is empty.
func (m *Memory) List(ctx context.Context, runID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if runID == "" || e.RunID == runID {
			res = append(res, e)
		}
	}
	return res, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Frequencies returns the distinct frequencies recorded for runID in
// ascending order.
func Frequencies(ctx context.Context, s Store, runID string) ([]float64, error) {
	entries, err := s.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	seen := make(map[float64]bool, len(entries))
	var out []float64
	for _, e := range entries {
		if !seen[e.Frequency] {
			seen[e.Frequency] = true
			out = append(out, e.Frequency)
		}
	}
	sort.Float64s(out)
	return out, nil
}
