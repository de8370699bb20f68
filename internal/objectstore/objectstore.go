// Package objectstore keeps generated audio in memory and hands out
// references to it, the server-side counterpart of a browser object URL.
//
// Every object has exactly one owner. The owner calls Release when the
// object is superseded or its session ends; objects nobody releases expire
// after the store TTL.
package objectstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// URLPrefix is the path under which objects are served.
const URLPrefix = "/audio/"

// Object is an encoded audio file held in memory.
type Object struct {
	ID          string
	FileName    string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// URL returns the path that serves the object.
func (o *Object) URL() string { return URL(o.ID) }

// URL returns the path that serves the object with the given ID.
func URL(id string) string { return URLPrefix + id }

// Store holds objects until they are released or expire.
type Store struct {
	cache *ttlcache.Cache[string, *Object]
}

// New creates a store whose objects expire ttl after their last access.
func New(ttl time.Duration) *Store {
	cache := ttlcache.New[string, *Object](
		ttlcache.WithTTL[string, *Object](ttl),
	)
	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Object]) {
		if reason == ttlcache.EvictionReasonExpired {
			slog.Debug("audio object expired", "object_id", item.Key(), "bytes", len(item.Value().Data))
		}
	})
	return &Store{cache: cache}
}

// Put stores data and returns its reference. The object expires after
// the store TTL unless it is released first.
func (s *Store) Put(data []byte, fileName, contentType string) *Object {
	return s.put(data, fileName, contentType, ttlcache.DefaultTTL)
}

// PutOwned stores data that never expires. The caller owns the object and
// must Release it.
func (s *Store) PutOwned(data []byte, fileName, contentType string) *Object {
	return s.put(data, fileName, contentType, ttlcache.NoTTL)
}

func (s *Store) put(data []byte, fileName, contentType string, ttl time.Duration) *Object {
	obj := &Object{
		ID:          uuid.NewString(),
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now(),
	}
	s.cache.Set(obj.ID, obj, ttl)
	return obj
}

// Get returns the object with the given ID and extends its lifetime.
func (s *Store) Get(id string) (*Object, bool) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Release frees the object. Releasing an unknown or already released
// object is a no-op; the result reports whether anything was freed.
func (s *Store) Release(id string) bool {
	if !s.cache.Has(id) {
		return false
	}
	s.cache.Delete(id)
	slog.Debug("audio object released", "object_id", id)
	return true
}

// Len returns the number of live objects.
func (s *Store) Len() int { return s.cache.Len() }

// Start runs the expiry loop until Stop is called.
func (s *Store) Start() { s.cache.Start() }

// Stop ends the expiry loop.
func (s *Store) Stop() { s.cache.Stop() }
