package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/adapters/events/redis"
	"github.com/aescanero/wfdiag/pkg/domain"
)

func newBus(t *testing.T, opts ...redis.Option) (*redis.StreamsEventBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts = append([]redis.Option{redis.WithBlock(50 * time.Millisecond)}, opts...)
	return redis.NewStreamsEventBus(client, zap.NewNop(), opts...), mr
}

func TestPublishAppendsToStream(t *testing.T) {
	bus, mr := newBus(t)

	id := uuid.New()
	require.NoError(t, bus.Publish(context.Background(), domain.ProgressUpdate{
		SessionID: id,
		Status:    domain.SessionStatusRunning,
		Message:   "Running Processor...",
	}))

	entries, err := mr.Stream(redis.DefaultStream)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values, id.String())
}

func TestSubscribeFiltersBySession(t *testing.T) {
	bus, _ := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	// published before Subscribe, must not be replayed
	a, b := uuid.New(), uuid.New()
	require.NoError(t, bus.Publish(ctx, domain.ProgressUpdate{SessionID: a, Status: domain.SessionStatusRunning}))

	sub, err := bus.Subscribe(ctx, a)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, domain.ProgressUpdate{SessionID: b, Status: domain.SessionStatusRunning}))
	require.NoError(t, bus.Publish(ctx, domain.ProgressUpdate{SessionID: a, Status: domain.SessionStatusCompleted, Progress: 1}))

	select {
	case u := <-sub:
		assert.Equal(t, a, u.SessionID)
		assert.Equal(t, domain.SessionStatusCompleted, u.Status)
		assert.Equal(t, 1.0, u.Progress)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}

	cancel()
	require.NoError(t, bus.Close())
	_, ok := <-sub
	assert.False(t, ok)
}
