package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staffhub/staffhub/internal/shared"
)

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// FailureObserver is told about every event that could not be written.
type FailureObserver interface {
	AuditFailure(reason string)
}

// EmitterConfig tunes the asynchronous emitter.
type EmitterConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Failures     FailureObserver
	Now          func() time.Time
}

// Emitter hands events to a Sink on a background goroutine. LogEvent never
// blocks the caller and never reports sink failures back to it.
type Emitter struct {
	sink     Sink
	queue    chan Event
	timeout  time.Duration
	logger   *slog.Logger
	failures FailureObserver
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewEmitter starts the drain goroutine. Call Close to flush and stop it.
func NewEmitter(sink Sink, cfg EmitterConfig) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	e := &Emitter{
		sink:     sink,
		queue:    make(chan Event, cfg.QueueSize),
		timeout:  cfg.WriteTimeout,
		logger:   cfg.Logger,
		failures: cfg.Failures,
		now:      cfg.Now,
		done:     make(chan struct{}),
	}
	go e.drain()
	return e
}

// LogEvent queues event for persistence, assigning an id and timestamp when
// missing. Events arriving after Close or while the queue is full are dropped
// and reported as write failures.
func (e *Emitter) LogEvent(ctx context.Context, event Event) {
	if e == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.fail(ctx, event, "closed", fmt.Errorf("%w: emitter closed", shared.ErrAuditWrite))
		return
	}
	select {
	case e.queue <- event:
	default:
		e.fail(ctx, event, "queue_full", fmt.Errorf("%w: queue full", shared.ErrAuditWrite))
	}
}

// Close stops accepting events and waits until queued events are written or
// ctx expires.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) drain() {
	defer close(e.done)
	for event := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		err := e.sink.Record(ctx, event)
		cancel()
		if err != nil {
			e.fail(context.Background(), event, "sink", fmt.Errorf("%w: %w", shared.ErrAuditWrite, err))
		}
	}
}

func (e *Emitter) fail(ctx context.Context, event Event, reason string, err error) {
	e.logger.LogAttrs(ctx, slog.LevelError, "audit write failed",
		slog.String("reason", reason),
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.EventType)),
		slog.String("actor_id", event.ActorID),
		slog.Any("error", err),
	)
	if e.failures != nil {
		e.failures.AuditFailure(reason)
	}
}
