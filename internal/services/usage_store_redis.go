package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisUsageStore implements UsageStore on Redis with atomic Lua scripts.
// Keys carry a TTL comfortably past the UTC day boundary so stale counters
// clean themselves up.
type RedisUsageStore struct {
	client    redis.UniversalClient
	keyPrefix string
	keyTTL    time.Duration

	incrScript    *redis.Script
	releaseScript *redis.Script
}

// incrScript refuses to pass the limit when one is given, mirroring the
// conditional Postgres upsert.
const incrLua = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', key) or '0')
if limit > 0 and current >= limit then
	return -1
end
local new = redis.call('INCR', key)
if ttl > 0 then
	redis.call('EXPIRE', key, ttl)
end
return new
`

const releaseLua = `
local key = KEYS[1]
local current = tonumber(redis.call('GET', key) or '0')
if current > 0 then
	return redis.call('DECR', key)
end
return 0
`

func NewRedisUsageStore(client redis.UniversalClient) *RedisUsageStore {
	return &RedisUsageStore{
		client:        client,
		keyPrefix:     "askboyfriend:usage:",
		keyTTL:        48 * time.Hour,
		incrScript:    redis.NewScript(incrLua),
		releaseScript: redis.NewScript(releaseLua),
	}
}

func (s *RedisUsageStore) key(userID uuid.UUID, dateKey string) string {
	return fmt.Sprintf("%s%s:%s", s.keyPrefix, userID, dateKey)
}

func (s *RedisUsageStore) GetDailyCount(ctx context.Context, userID uuid.UUID, dateKey string) (int, error) {
	count, err := s.client.Get(ctx, s.key(userID, dateKey)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *RedisUsageStore) Increment(ctx context.Context, userID uuid.UUID, dateKey string, limit int) (int, error) {
	result, err := s.incrScript.Run(ctx, s.client,
		[]string{s.key(userID, dateKey)},
		limit, int(s.keyTTL.Seconds()),
	).Int()
	if err != nil {
		return 0, err
	}
	if result < 0 {
		return 0, ErrQuotaExceeded
	}
	return result, nil
}

func (s *RedisUsageStore) Release(ctx context.Context, userID uuid.UUID, dateKey string) error {
	return s.releaseScript.Run(ctx, s.client, []string{s.key(userID, dateKey)}).Err()
}
