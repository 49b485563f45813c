// Package memory provides an in-memory audit.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/curriculum-engine/audit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]int
	evals []audit.Evaluation // ordered by CreatedAt, oldest first
}

func New() *Store {
	return &Store{byID: make(map[uuid.UUID]int)}
}

// Save stores an evaluation. Saving an existing ID replaces it.
func (m *Store) Save(_ context.Context, e *audit.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *e
	rec.Transcript = e.Transcript.Clone()

	if i, ok := m.byID[e.ID]; ok {
		m.evals = append(m.evals[:i], m.evals[i+1:]...)
	}

	// Binary search for insertion point; equal timestamps keep save order.
	i := sort.Search(len(m.evals), func(i int) bool {
		return m.evals[i].CreatedAt.After(rec.CreatedAt)
	})
	m.evals = append(m.evals, audit.Evaluation{})
	copy(m.evals[i+1:], m.evals[i:])
	m.evals[i] = rec

	m.reindexLocked()
	return nil
}

// Get returns (nil, nil) for an unknown ID.
func (m *Store) Get(_ context.Context, id uuid.UUID) (*audit.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	rec := m.evals[i]
	rec.Transcript = rec.Transcript.Clone()
	return &rec, nil
}

// List returns up to limit evaluations, newest first.
func (m *Store) List(_ context.Context, limit int) ([]audit.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return []audit.Evaluation{}, nil
	}
	out := make([]audit.Evaluation, 0, min(limit, len(m.evals)))
	for i := len(m.evals) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.evals[i])
	}
	return out, nil
}

// Prune deletes evaluations created before the cutoff.
func (m *Store) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := sort.Search(len(m.evals), func(i int) bool {
		return !m.evals[i].CreatedAt.Before(before)
	})
	if n == 0 {
		return 0, nil
	}
	m.evals = append(m.evals[:0], m.evals[n:]...)
	m.reindexLocked()
	return n, nil
}

func (m *Store) reindexLocked() {
	clear(m.byID)
	for i, e := range m.evals {
		m.byID[e.ID] = i
	}
}
