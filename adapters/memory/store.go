// Package memory provides an in-process core.UserStorage for tests, demos
// and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lborres/susi/core"
)

// Store keeps identities in maps guarded by one RWMutex. The username and
// provider id indexes are checked and written under the same lock, so a
// losing concurrent insert always sees the conflict.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*core.User
	byUsername map[string]string
	byProvider map[string]string

	// counters
	lookups   int64
	misses    int64
	inserts   int64
	updates   int64
	conflicts int64
}

// Stats is a point-in-time view of the store counters.
type Stats struct {
	Lookups   int64
	Misses    int64
	Inserts   int64
	Updates   int64
	Conflicts int64
	Size      int
}

var _ core.UserStorage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      make(map[string]*core.User),
		byUsername: make(map[string]string),
		byProvider: make(map[string]string),
	}
}

func (s *Store) FindUserByProviderID(ctx context.Context, providerID string) (*core.User, error) {
	return s.find(ctx, s.byProvider, providerID)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.find(ctx, s.byUsername, username)
}

func (s *Store) find(ctx context.Context, index map[string]string, key string) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	atomic.AddInt64(&s.lookups, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := index[key]
	if !ok || key == "" {
		atomic.AddInt64(&s.misses, 1)
		return nil, core.ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

// InsertUser stores a copy of u. Mutating u afterwards does not affect the store.
func (s *Store) InsertUser(ctx context.Context, u *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Username == "" && u.ProviderID == "" {
		return core.ErrUserIdentifierRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(u); err != nil {
		atomic.AddInt64(&s.conflicts, 1)
		return err
	}

	s.index(u)
	atomic.AddInt64(&s.inserts, 1)
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.Username == "" && u.ProviderID == "" {
		return core.ErrUserIdentifierRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[u.ID]
	if !ok {
		return core.ErrUserNotFound
	}
	if err := s.checkUnique(u); err != nil {
		atomic.AddInt64(&s.conflicts, 1)
		return err
	}

	if prev.Username != "" && prev.Username != u.Username {
		delete(s.byUsername, prev.Username)
	}
	if prev.ProviderID != "" && prev.ProviderID != u.ProviderID {
		delete(s.byProvider, prev.ProviderID)
	}
	s.index(u)
	atomic.AddInt64(&s.updates, 1)
	return nil
}

// checkUnique reports whether u's identifiers belong to another record.
// Callers must hold the write lock.
func (s *Store) checkUnique(u *core.User) error {
	if u.Username != "" {
		if id, exists := s.byUsername[u.Username]; exists && id != u.ID {
			return core.ErrUsernameConflict
		}
	}
	if u.ProviderID != "" {
		if id, exists := s.byProvider[u.ProviderID]; exists && id != u.ID {
			return core.ErrProviderIDConflict
		}
	}
	return nil
}

func (s *Store) index(u *core.User) {
	s.users[u.ID] = u.Clone()
	if u.Username != "" {
		s.byUsername[u.Username] = u.ID
	}
	if u.ProviderID != "" {
		s.byProvider[u.ProviderID] = u.ID
	}
}

// Len returns the number of stored identities
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Stats returns store statistics
func (s *Store) Stats() Stats {
	return Stats{
		Lookups:   atomic.LoadInt64(&s.lookups),
		Misses:    atomic.LoadInt64(&s.misses),
		Inserts:   atomic.LoadInt64(&s.inserts),
		Updates:   atomic.LoadInt64(&s.updates),
		Conflicts: atomic.LoadInt64(&s.conflicts),
		Size:      s.Len(),
	}
}
