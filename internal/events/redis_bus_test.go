package events

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisBusDeliversToEverySubscriber(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })

	// Two buses on one client stand in for two server instances.
	first, second := NewRedisBus(rdb), NewRedisBus(rdb)
	chFirst, err := first.Subscribe(ctx)
	require.NoError(t, err)
	chSecond, err := second.Subscribe(ctx)
	require.NoError(t, err)

	ev, err := New(TypeSessionUpdated, SessionUpdatedPayload{SessionID: "s1", Moves: 4})
	require.NoError(t, err)
	require.NoError(t, first.Publish(ctx, ev))

	for _, ch := range []<-chan Event{chFirst, chSecond} {
		got := receive(t, ch)
		assert.Equal(t, TypeSessionUpdated, got.Type)
		assert.JSONEq(t, `{"session_id":"s1","moves":4}`, string(got.Payload))
	}

	cancel()
	for _, ch := range []<-chan Event{chFirst, chSecond} {
		for range ch {
		}
	}
}
