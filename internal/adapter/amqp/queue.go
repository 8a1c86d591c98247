package amqp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/heartmarshall/mangalend-backend/pkg/ctxutil"
)

// Queue errors.
var (
	ErrQueueFull   = errors.New("event queue is full")
	ErrQueueClosed = errors.New("event queue is closed")
)

// Sink is a synchronous event destination such as *Publisher or Noop.
type Sink interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
	IsHealthy() bool
}

type queuedEvent struct {
	ctx       context.Context
	eventType string
	payload   map[string]any
}

// Queue hands events to a background worker so callers never wait on the
// broker. Each publish is bounded by the queue's timeout. When the buffer is
// full the event is dropped and ErrQueueFull returned.
type Queue struct {
	sink    Sink
	events  chan queuedEvent
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue starts a worker that publishes to sink.
func NewQueue(sink Sink, size int, timeout time.Duration, log *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		sink:    sink,
		events:  make(chan queuedEvent, size),
		timeout: timeout,
		log:     log.With("component", "event_queue"),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish enqueues the event without blocking. Values of ctx such as the
// request ID are kept; its cancellation is not.
func (q *Queue) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- queuedEvent{ctx: context.WithoutCancel(ctx), eventType: eventType, payload: payload}:
		return nil
	default:
		q.log.WarnContext(ctx, "event dropped", slog.String("event_type", eventType))
		return ErrQueueFull
	}
}

// IsHealthy reports whether the queue accepts events and the sink is healthy.
func (q *Queue) IsHealthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return !q.closed && q.sink.IsHealthy()
}

// Close stops accepting events and waits for queued ones to be published
// until ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for ev := range q.events {
		q.publish(ev)
	}
}

func (q *Queue) publish(ev queuedEvent) {
	ctx := ev.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	if err := q.sink.Publish(ctx, ev.eventType, ev.payload); err != nil {
		attrs := append([]slog.Attr{
			slog.String("event_type", ev.eventType),
			slog.String("error", err.Error()),
		}, ctxutil.LogAttrs(ctx)...)
		q.log.LogAttrs(ctx, slog.LevelWarn, "publish queued event", attrs...)
	}
}
