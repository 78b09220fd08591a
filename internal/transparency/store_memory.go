package transparency

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-memory append-only store for tests and single-process
// deployments. Entries are held in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Metadata = maps.Clone(entry.Metadata)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if !filter.Matches(e) {
			continue
		}
		e.Metadata = maps.Clone(e.Metadata)
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Corrupt overwrites one stored entry in place, bypassing the append-only
// contract. Test hook for exercising integrity verification; never call it
// from production code.
func (s *MemoryStore) Corrupt(index int, mutate func(*Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.entries) {
		mutate(&s.entries[index])
	}
}
