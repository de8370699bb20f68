package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// ReleaseFunc frees an audio object that a session no longer references.
type ReleaseFunc func(objectID string) bool

// Store holds session states with a sliding expiry.
//
// Whenever a stored state stops referencing an audio object (a new
// generation begins, the session is deleted or it expires) the object is
// passed to the release function.
type Store struct {
	mu      sync.Mutex
	cache   *ttlcache.Cache[string, State]
	release ReleaseFunc
}

// NewStore creates a store whose sessions expire ttl after their last use.
func NewStore(ttl time.Duration, release ReleaseFunc) *Store {
	if release == nil {
		release = func(string) bool { return false }
	}
	s := &Store{release: release}
	s.cache = ttlcache.New[string, State](
		ttlcache.WithTTL[string, State](ttl),
	)
	s.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, State]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		slog.Debug("session expired", "session_id", item.Key())
		if a := item.Value().Audio; a != nil {
			s.release(a.ObjectID)
		}
	})
	return s
}

// Create starts a new session in the initial state.
func (s *Store) Create() (string, State) {
	id := uuid.NewString()
	st := New()
	s.cache.Set(id, st, ttlcache.DefaultTTL)
	return id, st
}

// Get returns the current state of a session.
func (s *Store) Get(id string) (State, error) {
	item := s.cache.Get(id)
	if item == nil {
		return State{}, ErrNotFound
	}
	return item.Value(), nil
}

// Update applies fn to the current state atomically and stores the state
// it returns, even when fn also returns an error. To leave the session
// unchanged fn returns its argument.
func (s *Store) Update(id string, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return State{}, ErrNotFound
	}
	cur := item.Value()

	next, err := fn(cur)
	s.cache.Set(id, next, ttlcache.DefaultTTL)

	if cur.Audio != nil && (next.Audio == nil || next.Audio.ObjectID != cur.Audio.ObjectID) {
		s.release(cur.Audio.ObjectID)
	}
	return next, err
}

// Delete ends a session and releases its audio.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return ErrNotFound
	}
	s.cache.Delete(id)
	if a := item.Value().Audio; a != nil {
		s.release(a.ObjectID)
	}
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int { return s.cache.Len() }

// Start runs the expiry loop until Stop is called.
func (s *Store) Start() { s.cache.Start() }

// Stop ends the expiry loop.
func (s *Store) Stop() { s.cache.Stop() }
