package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
)

const (
	defaultWorkers       = 4
	defaultQueueSize     = 1024
	defaultHandleTimeout = 10 * time.Second
)

// Handler consumes one engagement event.
type Handler func(ctx context.Context, ev models.EngagementEvent) error

type queued struct {
	ctx context.Context
	ev  models.EngagementEvent
}

// Dispatcher decouples engagement events from the request that produced
// them. Emit never blocks: when the queue is full or the dispatcher is
// stopped the event is dropped and counted.
type Dispatcher struct {
	handler Handler
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	queue   chan queued
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher. Non-positive sizes fall back to defaults.
func NewDispatcher(handler Handler, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		handler: handler,
		workers: workers,
		timeout: defaultHandleTimeout,
		queue:   make(chan queued, queueSize),
	}
}

func (d *Dispatcher) Name() string { return "engagement-dispatcher" }

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return
	}
	d.running = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	slog.Info("engagement dispatcher started", slog.Int("workers", d.workers))
}

// Emit enqueues ev. The request context's values (request id, trace) are
// kept but its cancellation is not, so work outlives the response. The
// request id doubles as the correlation id of the async work.
func (d *Dispatcher) Emit(ctx context.Context, ev models.EngagementEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.drop(ctx, ev, "stopped")
		return
	}
	select {
	case d.queue <- queued{ctx: detach(ctx), ev: ev}:
		observability.DispatchQueueDepth.Set(float64(len(d.queue)))
	default:
		d.drop(ctx, ev, "dropped")
	}
}

func detach(ctx context.Context) context.Context {
	out := context.WithoutCancel(ctx)
	if rid := observability.ExtractRequestID(ctx); rid != "" {
		out = observability.WithCorrelationID(out, rid)
	}
	return out
}

func (d *Dispatcher) drop(ctx context.Context, ev models.EngagementEvent, result string) {
	observability.NotificationsDispatched.WithLabelValues(string(ev.Type), result).Inc()
	slog.WarnContext(ctx, "engagement event dropped",
		slog.String("reason", result),
		slog.String("type", string(ev.Type)),
		slog.String("post_id", ev.PostID),
		slog.String("owner_id", ev.OwnerID),
	)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for item := range d.queue {
		observability.DispatchQueueDepth.Set(float64(len(d.queue)))
		d.handle(item)
	}
}

func (d *Dispatcher) handle(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic in engagement handler",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	fields := map[string]any{"type": string(item.ev.Type), "post_id": item.ev.PostID, "owner_id": item.ev.OwnerID}
	observability.LogAsyncOperationStart(ctx, "notification_fanout", fields)
	if err := d.handler(ctx, item.ev); err != nil {
		observability.LogAsyncOperationError(ctx, "notification_fanout", err, fields)
		return
	}
	observability.LogAsyncOperationEnd(ctx, "notification_fanout", fields)
}

// Shutdown stops accepting events and waits for queued ones to be handled,
// or for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	wasRunning := d.running
	d.mu.Unlock()

	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-done:
		observability.DispatchQueueDepth.Set(0)
		slog.Info("engagement dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
