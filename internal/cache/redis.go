package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

// RedisCache is a JSON read cache in front of the task store. Every
// operation runs through a circuit breaker so a down Redis degrades to
// plain store reads instead of failing requests.
type RedisCache struct {
	client  *redis.Client
	breaker *CircuitBreaker
	timeout time.Duration
}

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Breaker      *CircuitBreakerConfig
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisCache{
		client:  rdb,
		breaker: NewCircuitBreaker(config.Breaker),
		timeout: 3 * time.Second,
	}
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		return r.client.Set(opCtx, key, data, expiration).Err()
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	var data string
	var miss bool

	// A missing key is a healthy answer from Redis, not a failure, so
	// it must not count against the breaker.
	err := r.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		result, err := r.client.Get(opCtx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				miss = true
				return nil
			}
			return err
		}
		data = result
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitBreakerOpen) {
			return ErrCacheDown
		}
		return fmt.Errorf("failed to get from cache: %w", err)
	}
	if miss {
		return ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		return r.client.Del(opCtx, key).Err()
	})
}

func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	return r.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		keys, err := r.client.Keys(opCtx, pattern).Result()
		if err != nil {
			return fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			return r.client.Del(opCtx, keys...).Err()
		}

		return nil
	})
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	var found bool

	err := r.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		result, err := r.client.Exists(opCtx, key).Result()
		if err != nil {
			return err
		}
		found = result > 0
		return nil
	})

	return found, err
}

func (r *RedisCache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	poolStats := r.client.PoolStats()

	stats := map[string]interface{}{
		"pool_hits":     poolStats.Hits,
		"pool_misses":   poolStats.Misses,
		"pool_timeouts": poolStats.Timeouts,
		"pool_total":    poolStats.TotalConns,
		"pool_idle":     poolStats.IdleConns,
	}

	for k, v := range r.breaker.Stats() {
		stats["breaker_"+k] = v
	}

	return stats
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
