package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ==============================================
// ATOMIC REDIS STORE
// ==============================================

// keyGrace pads the key TTL past the window so a key cannot expire
// between eviction and the next evaluation.
const keyGrace = time.Second

// allowScript evicts expired members, checks cardinality against the
// limit, and only then records the arrival and refreshes the key TTL.
// Script execution is serialized per key by Redis, so concurrent
// processes cannot race past the limit.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window + tonumber(ARGV[5]))
return 1
`)

var recordScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
redis.call('ZADD', key, now, ARGV[3])
redis.call('PEXPIRE', key, window + tonumber(ARGV[4]))
return 1
`)

// RedisStore delegates window bookkeeping to an atomic server-side
// script over a sorted set per key, sharing limits across processes.
// When Redis is unreachable every call fails with ErrStoreUnavailable
// rather than silently admitting.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Allow implements Store.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := allowScript.Run(ctx, s.client,
		[]string{key},
		s.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
		keyGrace.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return res == 1, nil
}

// Record implements Store.
func (s *RedisStore) Record(ctx context.Context, key string, window time.Duration) error {
	err := recordScript.Run(ctx, s.client,
		[]string{key},
		s.now().UnixMilli(),
		window.Milliseconds(),
		uuid.NewString(),
		keyGrace.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
