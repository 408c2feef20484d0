// Package lock provides the Redis-backed lock that serializes period transitions
// across server replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/period"
	"stockledger/pkg/logger"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Options tune lock acquisition.
type Options struct {
	// TTL bounds how long a crashed holder keeps the lock.
	TTL time.Duration
	// Wait is how long Lock retries before giving up.
	Wait time.Duration
	// Retry is the pause between attempts.
	Retry time.Duration
}

// DefaultOptions returns the lock settings used by the server.
func DefaultOptions() Options {
	return Options{TTL: 30 * time.Second, Wait: 5 * time.Second, Retry: 100 * time.Millisecond}
}

type handle interface {
	Release(ctx context.Context) error
}

type obtainFunc func(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (handle, error)

// RedisLocker implements period.Locker with bsm/redislock.
type RedisLocker struct {
	obtain obtainFunc
	opts   Options
}

var _ period.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker on top of an existing client.
func NewRedisLocker(rdb *redis.Client, opts Options) *RedisLocker {
	client := redislock.New(rdb)
	return newRedisLocker(func(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (handle, error) {
		l, err := client.Obtain(ctx, key, ttl, opt)
		if err != nil {
			return nil, err
		}
		return l, nil
	}, opts)
}

func newRedisLocker(obtain obtainFunc, opts Options) *RedisLocker {
	def := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.Wait <= 0 {
		opts.Wait = def.Wait
	}
	if opts.Retry <= 0 {
		opts.Retry = def.Retry
	}
	return &RedisLocker{obtain: obtain, opts: opts}
}

// Lock obtains key, retrying until Options.Wait elapses.
//
// A held lock yields a Conflict error. When Redis itself is unreachable the
// transition proceeds unlocked: the database constraints still reject a
// conflicting outcome.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	h, err := l.obtain(waitCtx, key, l.opts.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.opts.Retry),
	})
	switch {
	case err == nil:
	case errors.Is(err, redislock.ErrNotObtained),
		errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, apperror.NewConflict("Another period transition is in progress").
			WithDetail("lock", key)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logger.Warn(ctx, "redis lock unavailable, proceeding without it", "lock", key, "error", err)
		return func() {}, nil
	}

	return func() {
		// the caller's context may already be cancelled
		if err := h.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "failed to release redis lock", "lock", key, "error", err)
		}
	}, nil
}
