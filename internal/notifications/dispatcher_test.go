package notifications

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func likeEvent(post string) models.EngagementEvent {
	return models.EngagementEvent{Type: models.NotificationLike, PostID: post, ActorID: "a", OwnerID: "o"}
}

func TestDispatcher_DeliversEventsAsync(t *testing.T) {
	var mu sync.Mutex
	var got []string
	d := NewDispatcher(func(_ context.Context, ev models.EngagementEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.PostID)
		return nil
	}, 2, 8)
	d.Start()

	for _, p := range []string{"p1", "p2", "p3"} {
		d.Emit(context.Background(), likeEvent(p))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, testEventuallyTimeout, testPollInterval)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, got)
}

func TestDispatcher_DetachesCancellationKeepsValues(t *testing.T) {
	seen := make(chan context.Context, 1)
	d := NewDispatcher(func(ctx context.Context, _ models.EngagementEvent) error {
		seen <- ctx
		return nil
	}, 1, 1)
	d.Start()
	defer func() { _ = d.Shutdown(context.Background()) }()

	reqCtx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	reqCtx = context.WithValue(reqCtx, observability.RequestIDKey, "rid-7")
	reqCtx, cancel := context.WithCancel(reqCtx)
	d.Emit(reqCtx, likeEvent("p1"))
	cancel()

	select {
	case ctx := <-seen:
		assert.Equal(t, "req-1", ctx.Value(ctxKey{}))
		assert.Equal(t, "rid-7", observability.ExtractCorrelationID(ctx))
		assert.NoError(t, ctx.Err())
	case <-time.After(testEventuallyTimeout):
		t.Fatal("handler not called")
	}
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	var handled atomic.Int32
	d := NewDispatcher(func(context.Context, models.EngagementEvent) error {
		<-release
		handled.Add(1)
		return nil
	}, 1, 1)
	d.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Emit(context.Background(), likeEvent("p"))
		}
	}()
	select {
	case <-done:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("Emit blocked on a full queue")
	}

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Less(t, handled.Load(), int32(10))
	assert.GreaterOrEqual(t, handled.Load(), int32(1))
}

func TestDispatcher_ShutdownDrainsQueue(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(func(context.Context, models.EngagementEvent) error {
		time.Sleep(5 * time.Millisecond)
		handled.Add(1)
		return errors.New("handler errors are logged only")
	}, 1, 16)
	d.Start()

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), likeEvent("p"))
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(5), handled.Load())

	// Emitting after shutdown is dropped, not a panic.
	d.Emit(context.Background(), likeEvent("late"))
	assert.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcher_RecoversFromHandlerPanic(t *testing.T) {
	var calls atomic.Int32
	d := NewDispatcher(func(context.Context, models.EngagementEvent) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}, 1, 4)
	d.Start()

	d.Emit(context.Background(), likeEvent("p1"))
	d.Emit(context.Background(), likeEvent("p2"))
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}
