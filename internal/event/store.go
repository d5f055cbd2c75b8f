package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CurrentEventStore remembers the selected event per login session. Keys are
// hashed session tokens, so one user's choice never leaks to another session.
type CurrentEventStore interface {
	Get(ctx context.Context, sessionKey string) (int64, bool, error)
	Set(ctx context.Context, sessionKey string, eventID int64) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionKey string) string {
	return "qbank:current_event:" + sessionKey
}

func (s *RedisStore) Get(ctx context.Context, sessionKey string) (int64, bool, error) {
	if sessionKey == "" {
		return 0, false, nil
	}
	val, err := s.client.Get(ctx, redisKey(sessionKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get current event: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionKey string, eventID int64) error {
	if sessionKey == "" {
		return nil
	}
	if err := s.client.Set(ctx, redisKey(sessionKey), strconv.FormatInt(eventID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("set current event: %w", err)
	}
	return nil
}

// MemoryStore is a process-local CurrentEventStore for tests and
// single-instance deployments without redis.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Get(_ context.Context, sessionKey string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.values[sessionKey]
	return id, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionKey string, eventID int64) error {
	if sessionKey == "" {
		return nil
	}
	s.mu.Lock()
	s.values[sessionKey] = eventID
	s.mu.Unlock()
	return nil
}
