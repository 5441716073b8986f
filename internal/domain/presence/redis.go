package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "dm:typing:"

// RedisBackend stores typing entries in one sorted set per conversation,
// scored by expiry in unix milliseconds. The set key itself expires with its
// newest entry, so abandoned conversations need no sweeping.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a Redis-backed presence backend
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(conversationID string) string {
	return b.prefix + conversationID
}

// Set stores or refreshes an entry
func (b *RedisBackend) Set(ctx context.Context, conversationID, userID string, expiresAt time.Time) error {
	key := b.key(conversationID)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(expiresAt.UnixMilli()), Member: userID})
		pipe.ExpireAt(ctx, key, expiresAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

// Remove deletes an entry
func (b *RedisBackend) Remove(ctx context.Context, conversationID, userID string) error {
	if err := b.client.ZRem(ctx, b.key(conversationID), userID).Err(); err != nil {
		return fmt.Errorf("redis zrem: %w", err)
	}
	return nil
}

// Active evicts expired members and returns the live ones
func (b *RedisBackend) Active(ctx context.Context, conversationID string, now time.Time) ([]string, error) {
	key := b.key(conversationID)
	cutoff := strconv.FormatInt(now.UnixMilli(), 10)

	var live *redis.StringSliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		live = pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "(" + cutoff, Max: "+inf"})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}

	users := live.Val()
	sort.Strings(users)
	return users, nil
}

// Sweep is a no-op: Redis expires whole keys and Active trims members
func (b *RedisBackend) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Ping checks the Redis connection
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
