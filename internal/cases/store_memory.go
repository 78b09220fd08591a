package cases

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"takedown/internal/workflow"
	"takedown/pkg/platform/sentinel"
)

// MemoryStore is an in-memory case repository for tests and single-process
// deployments. It hands out clones so callers never share mutable state, and
// enforces the same version check as the PostgreSQL store.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[uuid.UUID]*workflow.Case
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[uuid.UUID]*workflow.Case)}
}

func (s *MemoryStore) Create(ctx context.Context, c *workflow.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Fetch(ctx context.Context, id uuid.UUID) (*workflow.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) FetchByStates(ctx context.Context, states []workflow.CaseState, requireSLADeadline bool) ([]*workflow.Case, error) {
	wanted := make(map[workflow.CaseState]struct{}, len(states))
	for _, st := range states {
		wanted[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*workflow.Case
	for _, c := range s.cases {
		if _, ok := wanted[c.State]; !ok {
			continue
		}
		if requireSLADeadline && c.SLADueAt == nil {
			continue
		}
		out = append(out, c.Clone())
	}

	// Earliest SLA deadline first; cases without one sort last.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].SLADueAt, out[j].SLADueAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, c *workflow.Case, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}

	next := c.Clone()
	next.Version = expectedVersion + 1
	s.cases[c.ID] = next
	c.Version = next.Version
	return nil
}

// memoryTxRunner serializes read-modify-write sequences with a coarse lock.
// In-memory stores cannot roll back a completed mutation, so callers order
// operations to fail before the first write (the service saves the case state
// first and appends the log entry second, and append on the memory log store
// cannot fail).
type memoryTxRunner struct {
	mu sync.Mutex
}

// NewMemoryTxRunner returns a TxRunner for in-memory deployments.
func NewMemoryTxRunner() TxRunner {
	return &memoryTxRunner{}
}

func (t *memoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
