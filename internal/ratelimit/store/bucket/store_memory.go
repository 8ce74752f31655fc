package bucket

import (
	"context"
	"sync"
	"time"

	"corpauth/internal/ratelimit/models"
)

// InMemoryBucketStore keeps sliding windows in process memory. Windows are
// not shared between instances; configure Redis for that.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

type Option func(*InMemoryBucketStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add records one entry under key and returns the window after it.
func (s *InMemoryBucketStore) Add(_ context.Context, key string, window time.Duration) (models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.getOrCreateBucket(key)
	sw.cleanup(now, window)
	sw.timestamps = append(sw.timestamps, now)
	return sw.state(), nil
}

// Count returns the window under key without recording an entry.
func (s *InMemoryBucketStore) Count(_ context.Context, key string, window time.Duration) (models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.buckets[key]
	if sw == nil {
		return models.Window{}, nil
	}
	sw.cleanup(s.now(), window)
	if len(sw.timestamps) == 0 {
		delete(s.buckets, key)
		return models.Window{}, nil
	}
	return sw.state(), nil
}

// Reset forgets every entry under key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// cleanup drops timestamps that fell out of the window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

func (sw *slidingWindow) state() models.Window {
	if len(sw.timestamps) == 0 {
		return models.Window{}
	}
	return models.Window{Count: len(sw.timestamps), Oldest: sw.timestamps[0]}
}

// Must be called while holding s.mu.
func (s *InMemoryBucketStore) getOrCreateBucket(key string) *slidingWindow {
	if sw := s.buckets[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{}
	s.buckets[key] = sw
	return sw
}
