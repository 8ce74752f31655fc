package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"corpauth/internal/ratelimit/models"
)

// addScript trims the sorted set to the window, adds one entry and returns
// the count and the oldest score. Scores are unix milliseconds.
var addScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return {redis.call("ZCARD", KEYS[1]), oldest[2] or "0"}
`)

var countScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
return {redis.call("ZCARD", KEYS[1]), oldest[2] or "0"}
`)

// RedisBucketStore keeps sliding windows in Redis sorted sets so every
// instance sees the same counts.
type RedisBucketStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisBucketStore(client redis.Cmdable, prefix string) *RedisBucketStore {
	return &RedisBucketStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisBucketStore) Add(ctx context.Context, key string, window time.Duration) (models.Window, error) {
	now := s.now()
	args := []any{
		cutoffMillis(now, window),
		now.UnixMilli(),
		uuid.NewString(),
		window.Milliseconds(),
	}
	res, err := addScript.Run(ctx, s.client, []string{s.prefix + key}, args...).Slice()
	if err != nil {
		return models.Window{}, fmt.Errorf("add to window %s: %w", key, err)
	}
	return parseWindow(res)
}

func (s *RedisBucketStore) Count(ctx context.Context, key string, window time.Duration) (models.Window, error) {
	res, err := countScript.Run(ctx, s.client, []string{s.prefix + key}, cutoffMillis(s.now(), window)).Slice()
	if err != nil {
		return models.Window{}, fmt.Errorf("count window %s: %w", key, err)
	}
	return parseWindow(res)
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("reset window %s: %w", key, err)
	}
	return nil
}

func cutoffMillis(now time.Time, window time.Duration) int64 {
	return now.Add(-window).UnixMilli()
}

func parseWindow(res []any) (models.Window, error) {
	if len(res) != 2 {
		return models.Window{}, fmt.Errorf("unexpected window reply %v", res)
	}
	count, ok := res[0].(int64)
	if !ok {
		return models.Window{}, fmt.Errorf("unexpected window count %T", res[0])
	}
	if count == 0 {
		return models.Window{}, nil
	}
	raw, _ := res[1].(string)
	oldest, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Window{}, fmt.Errorf("parse window oldest %q: %w", raw, err)
	}
	return models.Window{Count: int(count), Oldest: time.UnixMilli(int64(oldest))}, nil
}
