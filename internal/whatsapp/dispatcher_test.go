package whatsapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherPreservesOrder(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []int
	)

	done := make(chan struct{})
	dispatcher := NewDispatcher(4, func(_ context.Context, evt any) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, evt.(int))
		if len(seen) == 50 {
			close(done)
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go dispatcher.Run(ctx)

	for i := range 50 {
		require.True(t, dispatcher.Enqueue(i))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events were not dispatched")
	}

	mu.Lock()
	defer mu.Unlock()

	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	t.Parallel()

	handled := make(chan string, 2)
	dispatcher := NewDispatcher(4, func(_ context.Context, evt any) {
		if evt == "boom" {
			panic("handler failure")
		}

		handled <- evt.(string)
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go dispatcher.Run(ctx)

	require.True(t, dispatcher.Enqueue("boom"))
	require.True(t, dispatcher.Enqueue("after"))

	select {
	case evt := <-handled:
		assert.Equal(t, "after", evt)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher stopped after a panic")
	}
}

func TestDispatcherRejectsAfterStop(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(1, func(context.Context, any) {}, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	dispatcher.Run(ctx)

	assert.False(t, dispatcher.Enqueue("late"))
}

func TestDispatcherUnblocksFullQueueOnStop(t *testing.T) {
	t.Parallel()

	dispatcher := NewDispatcher(1, func(context.Context, any) {}, zap.NewNop())
	require.True(t, dispatcher.Enqueue("fills the queue"))

	result := make(chan bool)
	go func() { result <- dispatcher.Enqueue("blocked") }()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	dispatcher.Run(ctx)

	select {
	case <-result:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue stayed blocked after stop")
	}
}
