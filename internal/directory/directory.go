package directory

import (
	"context"
	"sort"
	"sync"

	"takedown/internal/workflow"
	"takedown/pkg/platform/sentinel"
)

// User is an account known to the service. Roles map one-to-one onto the
// workflow roles so transition authorization needs no translation layer.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         workflow.Role
	Active       bool
}

// Store is the user directory boundary.
type Store interface {
	// FindByUsername returns the user; sentinel.ErrNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*User, error)
	// ActiveAdmins returns every active admin, ordered by ID for stable
	// notification fan-out.
	ActiveAdmins(ctx context.Context) ([]*User, error)
}

// MemoryStore is an in-memory directory for tests and single-process runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// Add inserts or replaces a user keyed by username.
func (s *MemoryStore) Add(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.Username] = &cp
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ActiveAdmins(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*User
	for _, u := range s.users {
		if u.Role == workflow.RoleAdmin && u.Active {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
