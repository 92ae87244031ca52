package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// redisKV keeps values as plain strings under prefix+key.
type redisKV struct {
	client redis.Cmdable
	prefix string
}

// NewRedis returns a KV backed by a Redis client. Keys are namespaced with
// prefix (for example "patternrush:").
func NewRedis(client redis.Cmdable, prefix string) KV {
	return &redisKV{client: client, prefix: prefix}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
