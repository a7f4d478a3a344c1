package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs Cache with a go-redis client.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis reports -2ns for a missing key and -1ns for no expiry.
	switch ttl {
	case -2 * time.Nanosecond:
		return 0, ErrMiss
	case -1 * time.Nanosecond:
		return 0, nil
	}
	return ttl, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Pipelined(ctx context.Context, fn func(p Pipeline)) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(redisPipeline{ctx: ctx, pipe: pipe})
		return nil
	})
	return err
}

type redisPipeline struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (p redisPipeline) Set(key, value string, ttl time.Duration) {
	p.pipe.Set(p.ctx, key, value, ttl)
}

func (p redisPipeline) Incr(key string) {
	p.pipe.Incr(p.ctx, key)
}

func (p redisPipeline) Expire(key string, ttl time.Duration) {
	p.pipe.Expire(p.ctx, key, ttl)
}

func (p redisPipeline) Del(keys ...string) {
	p.pipe.Del(p.ctx, keys...)
}
