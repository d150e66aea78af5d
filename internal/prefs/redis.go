package prefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisClient is the subset of the redis client used by RedisStore
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps preferences in redis so several UI servers can share them
type RedisStore struct {
	client    RedisClient
	keyPrefix string
	ttl       time.Duration
	logger    *logrus.Logger
}

// NewRedisStore creates a redis backed store. A zero ttl keeps keys forever.
func NewRedisStore(client RedisClient, keyPrefix string, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	if logger == nil {
		logger = logrus.New()
	}
	if keyPrefix == "" {
		keyPrefix = "grasshopper-ui:prefs:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (s *RedisStore) generateKey(scope, key string) string {
	return fmt.Sprintf("%s%s:%s", s.keyPrefix, scope, key)
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.generateKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

// Put implements Store
func (s *RedisStore) Put(ctx context.Context, scope, key string, value []byte) error {
	if err := s.client.Set(ctx, s.generateKey(scope, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// Close implements Store
func (s *RedisStore) Close() error {
	if closer, ok := s.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
