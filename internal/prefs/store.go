// Package prefs stores small per-browser UI preferences such as the ids of
// collapsed list items and whether the help video was already shown. The
// store is best effort: callers degrade to defaults when it fails.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown preference backend")

// Store is a key/value store partitioned by browser id
type Store interface {
	// Get returns the raw value of key for scope and whether it was present
	Get(ctx context.Context, scope, key string) ([]byte, bool, error)
	// Put stores the raw value of key for scope
	Put(ctx context.Context, scope, key string, value []byte) error
	// Close releases the backend
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend string

	SQLitePath string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	// TTL bounds how long an idle browser's preferences are kept in redis
	TTL time.Duration
}

// Open creates the store selected by opts
func Open(opts Options, logger *logrus.Logger) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return NewSQLiteStore(opts.SQLitePath, logger)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddress,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		return NewRedisStore(client, opts.KeyPrefix, opts.TTL, logger), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// MemoryStore keeps preferences in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[scope+":"+key]
	return value, ok, nil
}

// Put implements Store
func (s *MemoryStore) Put(_ context.Context, scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[scope+":"+key] = append([]byte(nil), value...)
	return nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
