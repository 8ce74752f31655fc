//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"corpauth/internal/platform/config"
	platformredis "corpauth/internal/platform/redis"
	"corpauth/pkg/testutil/containers"
)

type LockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LockSuite))
}

func (s *LockSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *LockSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *LockSuite) TestClientFromConfig() {
	ctx := context.Background()
	client, err := platformredis.New(ctx, config.RedisConfig{URL: s.redis.URL})
	s.Require().NoError(err)
	defer client.Close()
	s.NoError(client.Health(ctx))
}

func (s *LockSuite) TestEmptyURLDisablesClient() {
	client, err := platformredis.New(context.Background(), config.RedisConfig{})
	s.NoError(err)
	s.Nil(client)
}

func (s *LockSuite) TestExclusive() {
	ctx := context.Background()
	lock := platformredis.NewLock(s.redis.Client, "corpauth:pass", time.Minute)

	release, err := lock.Acquire(ctx)
	s.Require().NoError(err)

	_, err = lock.Acquire(ctx)
	s.ErrorIs(err, platformredis.ErrLockHeld)

	release()
	release2, err := lock.Acquire(ctx)
	s.Require().NoError(err)
	release2()
}

func (s *LockSuite) TestStaleReleaseKeepsNewHolder() {
	ctx := context.Background()
	lock := platformredis.NewLock(s.redis.Client, "corpauth:pass", 50*time.Millisecond)

	staleRelease, err := lock.Acquire(ctx)
	s.Require().NoError(err)
	time.Sleep(100 * time.Millisecond)

	release, err := lock.Acquire(ctx)
	s.Require().NoError(err)
	defer release()

	staleRelease()
	s.Equal(int64(1), s.redis.Client.Exists(ctx, "corpauth:pass").Val())
}

func (s *LockSuite) TestConcurrentAcquireHasOneWinner() {
	ctx := context.Background()
	lock := platformredis.NewLock(s.redis.Client, "corpauth:pass", time.Minute)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lock.Acquire(ctx); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
