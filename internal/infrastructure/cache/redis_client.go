// Package cache provides the Redis connection shared by Redis-backed stores
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/infrastructure/config"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("redis circuit breaker is open")

// RedisClient wraps a go-redis client with a circuit breaker so a Redis
// outage fails fast instead of stalling every request.
type RedisClient struct {
	client  redis.UniversalClient
	config  *config.RedisConfig
	logger  *zap.Logger
	breaker *CircuitBreaker
}

// NewRedisClient creates a Redis client and checks the connection
func NewRedisClient(cfg *config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts := &redis.UniversalOptions{
		Addrs:        []string{cfg.Address()},
		Password:     cfg.Password,
		DB:           cfg.Database,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  time.Second * 10,
	}

	redisClient := &RedisClient{
		client:  redis.NewUniversalClient(opts),
		config:  cfg,
		logger:  logger.Named("redis"),
		breaker: NewCircuitBreaker(5, 30*time.Second),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		_ = redisClient.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisClient.logger.Info("Redis client initialized successfully",
		zap.String("addr", cfg.Address()),
		zap.Int("database", cfg.Database))

	return redisClient, nil
}

// Ping tests Redis connection
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.do("ping", func() error {
		return r.client.Ping(ctx).Err()
	})
}

// HGet reads one hash field. A missing key or field returns redis.Nil.
func (r *RedisClient) HGet(ctx context.Context, key, field string) (string, error) {
	var value string
	err := r.do("hget", func() error {
		var err error
		value, err = r.client.HGet(ctx, key, field).Result()
		return err
	})
	return value, err
}

// HSetWithTTL writes one hash field and refreshes the expiry of the whole hash
func (r *RedisClient) HSetWithTTL(ctx context.Context, key, field, value string, ttl time.Duration) error {
	return r.do("hset", func() error {
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, value)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	})
}

// Delete removes keys
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.do("del", func() error {
		return r.client.Del(ctx, keys...).Err()
	})
}

// Close closes the Redis client connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// do runs op through the circuit breaker. redis.Nil is an answer, not a failure.
func (r *RedisClient) do(op string, fn func() error) error {
	if !r.breaker.AllowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.breaker.RecordFailure()
		r.logger.Warn("Redis command failed", zap.String("op", op), zap.Error(err))
		return err
	}

	r.breaker.RecordSuccess()
	return err
}

// CircuitState represents circuit breaker states
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker opens after maxFailures consecutive failures and lets a
// call through once timeout has passed.
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	failures        int
	lastFailureTime time.Time
	state           CircuitState
	mu              sync.Mutex
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       CircuitClosed,
	}
}

// AllowRequest checks if requests are allowed based on circuit state
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
