package event

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", 3))
	require.NoError(t, s.Set(ctx, "b", 4))
	require.NoError(t, s.Set(ctx, "", 5))

	id, ok, _ := s.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
	id, _, _ = s.Get(ctx, "b")
	assert.Equal(t, int64(4), id)
	_, ok, _ = s.Get(ctx, "")
	assert.False(t, ok)
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	client.FlushDB(ctx)
	return client
}

func TestRedisStore(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "sess", 42))
	id, ok, err := s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	ttl, err := client.TTL(ctx, redisKey("sess")).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
