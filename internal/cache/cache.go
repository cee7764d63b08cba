package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cptrack/cptrack/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned by Get for absent keys and for any store failure: a
// broken cache must look exactly like an empty one to callers.
var ErrMiss = errors.New("cache miss")

type State string

const (
	StateUninitialized State = "uninitialized"
	StateConnected     State = "connected"
	StateDegraded      State = "degraded"
)

// Store is the category-keyed cache capability. It is never a correctness
// dependency: every read path must produce the same result when Get always
// misses, and Set/DeleteByPattern failures are swallowed by the implementation.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	DeleteByPattern(ctx context.Context, pattern string) int64
	State() State
}

type redisStore struct {
	client *redis.Client

	mu    sync.RWMutex
	state State
}

// New connects to Redis and returns a Store. Connection failure is not fatal:
// the store starts degraded and every operation becomes a no-op miss.
func New(ctx context.Context, cfg config.Redis) Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	s := &redisStore{client: client, state: StateUninitialized}
	if _, err := client.Ping(ctx).Result(); err != nil {
		zap.S().Warnf("redis unavailable at %s, cache degraded: %v", cfg.Addr, err)
		s.state = StateDegraded
		return s
	}

	zap.S().Infof("connected to redis at %s", cfg.Addr)
	s.state = StateConnected
	return s
}

func (s *redisStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *redisStore) degrade(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDegraded {
		zap.S().Warnf("cache store degraded: %v", err)
		s.state = StateDegraded
	}
}

func (s *redisStore) recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDegraded {
		zap.S().Info("cache store recovered")
	}
	s.state = StateConnected
}

func (s *redisStore) Get(ctx context.Context, key string, dest interface{}) error {
	if s.State() == StateDegraded {
		// One cheap probe per call; a recovered Redis re-enables the cache.
		if _, err := s.client.Ping(ctx).Result(); err != nil {
			return ErrMiss
		}
		s.recover()
	}

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.degrade(err)
		}
		return ErrMiss
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		zap.S().Warnf("corrupt cache entry for %s dropped: %v", key, err)
		s.client.Del(ctx, key)
		return ErrMiss
	}
	return nil
}

func (s *redisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.State() == StateDegraded {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		zap.S().Warnf("failed to marshal cache value for %s: %v", key, err)
		return
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.degrade(err)
	}
}

func (s *redisStore) DeleteByPattern(ctx context.Context, pattern string) int64 {
	if s.State() == StateDegraded {
		return 0
	}

	var deleted int64
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.degrade(err)
			return deleted
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		s.degrade(err)
	}
	return deleted
}

// Noop satisfies Store with permanent misses. Used in tests and whenever no
// Redis address is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest interface{}) error { return ErrMiss }

func (Noop) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {}

func (Noop) DeleteByPattern(ctx context.Context, pattern string) int64 { return 0 }

func (Noop) State() State { return StateUninitialized }
