package objectstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	s := New(time.Minute)

	obj := s.Put([]byte("RIFF"), "muryar-ai-Hausa-Kore.wav", "audio/wav")
	require.NotEmpty(t, obj.ID)
	assert.Equal(t, "/audio/"+obj.ID, obj.URL())

	got, ok := s.Get(obj.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("RIFF"), got.Data)
	assert.Equal(t, "muryar-ai-Hausa-Kore.wav", got.FileName)
	assert.Equal(t, 1, s.Len())
}

func TestPutAssignsDistinctIDs(t *testing.T) {
	s := New(time.Minute)
	a := s.Put(nil, "a.wav", "audio/wav")
	b := s.Put(nil, "b.wav", "audio/wav")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := New(time.Minute)
	obj := s.Put([]byte{1}, "x.wav", "audio/wav")

	assert.True(t, s.Release(obj.ID))
	assert.False(t, s.Release(obj.ID))
	assert.False(t, s.Release("unknown"))

	_, ok := s.Get(obj.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestObjectsExpire(t *testing.T) {
	s := New(20 * time.Millisecond)
	go s.Start()
	defer s.Stop()

	obj := s.Put([]byte{1}, "x.wav", "audio/wav")

	// Has does not extend the lifetime the way Get does.
	assert.Eventually(t, func() bool {
		return !s.cache.Has(obj.ID)
	}, time.Second, 10*time.Millisecond)
}

func TestOwnedObjectsDoNotExpire(t *testing.T) {
	s := New(20 * time.Millisecond)
	go s.Start()
	defer s.Stop()

	owned := s.PutOwned([]byte{1}, "owned.wav", "audio/wav")
	loose := s.Put([]byte{2}, "loose.wav", "audio/wav")

	assert.Eventually(t, func() bool {
		return !s.cache.Has(loose.ID)
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.cache.Has(owned.ID))

	assert.True(t, s.Release(owned.ID))
	assert.Equal(t, 0, s.Len())
}
