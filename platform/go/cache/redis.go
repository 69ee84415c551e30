package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// invalidateScript deletes every key of a tag set and the set itself atomically.
var invalidateScript = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for i = 1, #keys, 500 do
  redis.call('DEL', unpack(keys, i, math.min(i + 499, #keys)))
end
redis.call('DEL', KEYS[1])
return #keys
`)

// Redis is a Cache backed by go-redis. Tags are Redis sets holding member keys.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient creates a go-redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis client connected", zap.String("addr", addr), zap.Int("db", db))
	return rdb, nil
}

// NewRedis wraps client; every key and tag is namespaced with prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if client == nil {
		panic("redis cache requires client")
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return raw, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return nil
	}

	// Entries sharing a tag share a TTL, so extending the set on every write keeps it alive as long as its newest member.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.prefix+key, value, ttl)
		for _, tag := range tags {
			tagKey := r.tagKey(tag)
			pipe.SAdd(ctx, tagKey, r.prefix+key)
			pipe.PExpire(ctx, tagKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) InvalidateTag(ctx context.Context, tag string) error {
	if err := invalidateScript.Run(ctx, r.client, []string{r.tagKey(tag)}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis invalidate tag: %w", err)
	}
	return nil
}

func (r *Redis) tagKey(tag string) string {
	return r.prefix + "tag:" + tag
}
