package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"tokokirim-be/internal/config"
)

const lockRetryDelay = 250 * time.Millisecond

func InitRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// RedisLocker coordinates across server processes sharing the same redis.
type RedisLocker struct {
	rs *redsync.Redsync
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{rs: redsync.New(redsyncredis.NewPool(client))}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, wait time.Duration) (func(), error) {
	tries := int(wait/lockRetryDelay) + 1

	mutex := l.rs.NewMutex(
		name,
		redsync.WithExpiry(wait+30*time.Second),
		redsync.WithTries(tries),
		redsync.WithRetryDelay(lockRetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, ErrLockNotAcquired
	}

	release := func() {
		_, _ = mutex.UnlockContext(ctx)
	}
	return release, nil
}
