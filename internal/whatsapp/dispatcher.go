package whatsapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// DefaultQueueSize is the number of events buffered ahead of the handler.
const DefaultQueueSize = 256

// Dispatcher runs event handlers one at a time in arrival order.
// The protocol client delivers events from its receive loop, so handlers
// that make requests of their own must not run on that goroutine.
type Dispatcher struct {
	queue   chan any
	handle  func(ctx context.Context, evt any)
	done    chan struct{}
	logger  *zap.Logger
	stopped sync.Once
}

// NewDispatcher creates a dispatcher feeding events to handle.
func NewDispatcher(size int, handle func(ctx context.Context, evt any), logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}

	return &Dispatcher{
		queue:  make(chan any, size),
		handle: handle,
		done:   make(chan struct{}),
		logger: logger.Named("dispatcher"),
	}
}

// Enqueue adds an event to the queue, blocking while it is full.
// Returns false once the dispatcher has stopped.
func (d *Dispatcher) Enqueue(evt any) bool {
	select {
	case <-d.done:
		return false
	default:
	}

	select {
	case d.queue <- evt:
		return true
	case <-d.done:
		return false
	}
}

// Run drains the queue until ctx is done. Events still queued at that
// point are dropped.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.stopped.Do(func() { close(d.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-d.queue:
			d.dispatch(ctx, evt)
		}
	}
}

// dispatch runs the handler for one event and recovers from its panics.
func (d *Dispatcher) dispatch(ctx context.Context, evt any) {
	var catcher panics.Catcher

	catcher.Try(func() { d.handle(ctx, evt) })

	if recovered := catcher.Recovered(); recovered != nil {
		d.logger.Error("Event handler panicked",
			zap.String("eventType", fmt.Sprintf("%T", evt)),
			zap.Error(recovered.AsError()),
			zap.String("stack", string(recovered.Stack)))
	}
}
