package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sirupsen/logrus"
)

// ErrLockNotObtained is returned when another holder keeps the lock for
// the whole wait.
var ErrLockNotObtained = errors.New("lock not obtained")

// Cache wraps a redis client and a redislock client. A nil *Cache is a
// valid, disabled cache: reads miss, writes are dropped and locks are
// granted immediately.
type Cache struct {
	rdb    *redis.Client
	locker *redislock.Client
	log    logrus.FieldLogger
}

// NewRedisCache connects to redis. It returns nil without error when no
// address is configured.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*Cache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	log.WithField("addr", cfg.Addr).Info("connected to redis")
	return New(rdb, log), nil
}

// New wraps an existing client
func New(rdb *redis.Client, log logrus.FieldLogger) *Cache {
	return &Cache{rdb: rdb, locker: redislock.New(rdb), log: log}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetJSON decodes the value at key into dest. The bool reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v at key for ttl
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Invalidate deletes keys and logs a failure instead of returning it. A
// stale entry lives at most until its TTL.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if err := c.Delete(ctx, keys...); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

// Lock obtains a short-lived distributed lock on key, retrying for up to
// wait. The returned release func is always safe to call.
func (c *Cache) Lock(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	var opts *redislock.Options
	if wait > 0 {
		opts = &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(wait/(50*time.Millisecond))),
		}
	}

	lock, err := c.locker.Obtain(ctx, "lock:"+key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return func() {}, ErrLockNotObtained
	}
	if err != nil {
		return func() {}, err
	}
	return func() {
		// release on a fresh context so a cancelled request still unlocks
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			c.log.WithError(err).WithField("key", key).Warn("failed to release lock")
		}
	}, nil
}
