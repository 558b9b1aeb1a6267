// Package ratelimit 提供基于 Redis GCRA 的分布式限流
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器
type RateLimiter interface {
	// Allow 检查 key 在 limit 下是否放行
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 每 Period 放行 Rate 次，突发上限 Burst
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 每秒 rate 次；burst 非正时取 rate
func PerSecond(rate, burst int) Limit {
	if burst <= 0 {
		burst = rate
	}
	return Limit{Rate: rate, Period: time.Second, Burst: burst}
}

// Result 限流检查结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter 基于 redis_rate 的实现，所有 key 带统一前缀
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	prefix  string
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: redis_rate.NewLimiter(rdb), prefix: prefix}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return &Result{Allowed: true, Remaining: limit.Burst}, nil
	}
	res, err := r.limiter.Allow(ctx, r.key(key), redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit %s: %w", key, err)
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// Reset 清除 key 的限流状态
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.limiter.Reset(ctx, r.key(key))
}

func (r *RedisRateLimiter) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
