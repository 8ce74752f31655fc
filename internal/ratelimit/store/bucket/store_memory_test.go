package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const testWindow = time.Minute

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAdd() {
	s.Run("first entry opens the window", func() {
		w, err := s.store.Add(s.ctx, "add:first", testWindow)
		s.Require().NoError(err)
		s.Equal(1, w.Count)
		s.Equal(s.now, w.Oldest)
	})

	s.Run("entries accumulate and keep the oldest", func() {
		start := s.now
		for range 3 {
			_, err := s.store.Add(s.ctx, "add:many", testWindow)
			s.Require().NoError(err)
			s.now = s.now.Add(time.Second)
		}
		w, err := s.store.Count(s.ctx, "add:many", testWindow)
		s.Require().NoError(err)
		s.Equal(3, w.Count)
		s.Equal(start, w.Oldest)
	})
}

func (s *InMemoryBucketStoreSuite) TestSlidingWindowExpires() {
	_, err := s.store.Add(s.ctx, "slide", testWindow)
	s.Require().NoError(err)
	s.now = s.now.Add(40 * time.Second)
	_, err = s.store.Add(s.ctx, "slide", testWindow)
	s.Require().NoError(err)

	// Only the first entry falls out.
	s.now = s.now.Add(30 * time.Second)
	w, err := s.store.Count(s.ctx, "slide", testWindow)
	s.Require().NoError(err)
	s.Equal(1, w.Count)

	s.now = s.now.Add(time.Minute)
	w, err = s.store.Count(s.ctx, "slide", testWindow)
	s.Require().NoError(err)
	s.Zero(w.Count)
	s.True(w.Oldest.IsZero())
}

func (s *InMemoryBucketStoreSuite) TestCountUnknownKey() {
	w, err := s.store.Count(s.ctx, "missing", testWindow)
	s.Require().NoError(err)
	s.Zero(w.Count)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	_, err := s.store.Add(s.ctx, "reset", testWindow)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	w, err := s.store.Count(s.ctx, "reset", testWindow)
	s.Require().NoError(err)
	s.Zero(w.Count)

	s.NoError(s.store.Reset(s.ctx, "never-added"))
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAdds() {
	const goroutines = 50
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.store.Add(s.ctx, "concurrent", testWindow)
		}()
	}
	wg.Wait()

	w, err := s.store.Count(s.ctx, "concurrent", testWindow)
	s.Require().NoError(err)
	s.Equal(goroutines, w.Count)
}
