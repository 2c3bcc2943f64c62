package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// newRedisClient starts a throwaway Redis container. The test is skipped when
// Docker is not available.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisSessionRepository(t *testing.T) {
	client := newRedisClient(t)
	testSessionRepository(t, NewRedisSessionRepository(client, time.Hour))
}

func TestRedisSessionRepositorySetsTTL(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	repo := NewRedisSessionRepository(client, 10*time.Minute)

	s := newSession(t)
	require.NoError(t, repo.Create(ctx, s))

	ttl, err := client.TTL(ctx, sessionKey(s.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 9*time.Minute)
	assert.LessOrEqual(t, ttl, 10*time.Minute)
}

func TestRedisSessionRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	repo := NewRedisSessionRepository(client, 10*time.Minute)

	s := newSession(t)
	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Create(ctx, s)
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrSessionExists)
	}
	assert.Equal(t, 1, created)

	fields, err := client.HGetAll(ctx, sessionKey(s.ID)).Result()
	require.NoError(t, err)
	assert.Contains(t, fields, fieldState)
	assert.Contains(t, fields, fieldCreatedAt)
	assert.Contains(t, fields, fieldUpdatedAt)

	ttl, err := client.TTL(ctx, sessionKey(s.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisSessionRepositoryCreateDoesNotTouchExistingKey(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	repo := NewRedisSessionRepository(client, 10*time.Minute)

	s := newSession(t)
	key := sessionKey(s.ID)
	require.NoError(t, client.HSet(ctx, key, "owner", "someone else").Err())

	require.ErrorIs(t, repo.Create(ctx, s), ErrSessionExists)

	fields, err := client.HGetAll(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "someone else"}, fields)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "no expiry added to a key Create did not write")
}

func TestRedisSessionRepositoryRejectsCorruptState(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	repo := NewRedisSessionRepository(client, time.Hour)

	require.NoError(t, client.HSet(ctx, sessionKey("broken"), fieldState, `{"width":2}`).Err())

	_, err := repo.FindByID(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
