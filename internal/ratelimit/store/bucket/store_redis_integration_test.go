//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"corpauth/internal/ratelimit/store/bucket"
	"corpauth/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client, "corpauth:test:")
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestAddAndCount() {
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	for i := 1; i <= 3; i++ {
		w, err := s.store.Add(ctx, "claim:111", time.Minute)
		s.Require().NoError(err)
		s.Equal(i, w.Count)
	}

	w, err := s.store.Count(ctx, "claim:111", time.Minute)
	s.Require().NoError(err)
	s.Equal(3, w.Count)
	s.True(w.Oldest.After(before))

	ttl, err := s.redis.Client.PTTL(ctx, "corpauth:test:claim:111").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, "claim:222", 50*time.Millisecond)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		w, err := s.store.Count(ctx, "claim:222", 50*time.Millisecond)
		return err == nil && w.Count == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func (s *RedisBucketStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, "claim:333", time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(ctx, "claim:333"))

	w, err := s.store.Count(ctx, "claim:333", time.Minute)
	s.Require().NoError(err)
	s.Zero(w.Count)
}
