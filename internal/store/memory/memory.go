// Package memory is an in-process user store used by tests and by
// STORE_DRIVER=memory for local runs without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/userimport/internal/core"
)

// Store keeps users in a map keyed by id. Emails are unique. Values are
// copied in and out so callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	users   map[string]core.User
	byEmail map[string]string
	now     func() time.Time
}

var _ core.UserRepository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]core.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// SetClock replaces the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

// Insert assigns an id and timestamps to u and stores a copy.
func (s *Store) Insert(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateEmail, u.Email)
	}

	now := s.now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// ReplaceByEmail overwrites every mutable field of the user holding email.
// The id and creation time are kept.
func (s *Store) ReplaceByEmail(ctx context.Context, email string, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return core.ErrUserNotFound
	}
	existing := s.users[id]

	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now().UTC()
	s.put(existing.Email, *u)
	return nil
}

func (s *Store) Update(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return core.ErrUserNotFound
	}
	if owner, taken := s.byEmail[u.Email]; taken && owner != u.ID {
		return fmt.Errorf("%w: %s", core.ErrDuplicateEmail, u.Email)
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.now().UTC()
	s.put(existing.Email, *u)
	return nil
}

// put stores u, moving its email index entry from oldEmail. Caller holds mu.
func (s *Store) put(oldEmail string, u core.User) {
	if oldEmail != u.Email {
		delete(s.byEmail, oldEmail)
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	return nil
}

// Find returns matching users sorted by full name, then email.
func (s *Store) Find(ctx context.Context, filter core.UserFilter) ([]core.User, error) {
	s.mu.RLock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) CountByRole(ctx context.Context) (map[core.Role]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[core.Role]int64)
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
