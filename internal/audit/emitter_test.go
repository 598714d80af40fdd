package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFailures struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingFailures) AuditFailure(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *countingFailures) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.reasons...)
}

type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	store   *MemoryStore
}

func (s *blockingSink) Record(ctx context.Context, e Event) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return s.store.Record(ctx, e)
}

type failingSink struct{}

func (failingSink) Record(ctx context.Context, e Event) error {
	return errors.New("connection reset")
}

func TestEmitterWritesOnClose(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store, EmitterConfig{Now: func() time.Time { return now }})

	for i := 0; i < 5; i++ {
		emitter.LogEvent(context.Background(), Event{EventType: EventPermissionGranted, ActorID: "u1"})
	}
	require.NoError(t, emitter.Close(context.Background()))

	events := store.Events()
	require.Len(t, events, 5)
	assert.NotEmpty(t, events[0].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestEmitterKeepsCallerIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore()
	emitter := NewEmitter(store, EmitterConfig{})
	at := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	emitter.LogEvent(context.Background(), Event{ID: "fixed", Timestamp: at})
	require.NoError(t, emitter.Close(context.Background()))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "fixed", events[0].ID)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestEmitterDropsWhenQueueFull(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{}), store: NewMemoryStore()}
	failures := &countingFailures{}
	emitter := NewEmitter(sink, EmitterConfig{QueueSize: 1, Failures: failures})

	emitter.LogEvent(context.Background(), Event{ActorID: "first"})
	<-sink.started
	emitter.LogEvent(context.Background(), Event{ActorID: "queued"})
	emitter.LogEvent(context.Background(), Event{ActorID: "dropped"})

	assert.Equal(t, []string{"queue_full"}, failures.snapshot())
	close(sink.release)
	require.NoError(t, emitter.Close(context.Background()))
	assert.Len(t, sink.store.Events(), 2)
}

func TestEmitterReportsSinkFailures(t *testing.T) {
	failures := &countingFailures{}
	emitter := NewEmitter(failingSink{}, EmitterConfig{Failures: failures})

	emitter.LogEvent(context.Background(), Event{EventType: EventUnauthorizedAccess})
	require.NoError(t, emitter.Close(context.Background()))
	assert.Equal(t, []string{"sink"}, failures.snapshot())
}

func TestEmitterAfterClose(t *testing.T) {
	failures := &countingFailures{}
	emitter := NewEmitter(NewMemoryStore(), EmitterConfig{Failures: failures})
	require.NoError(t, emitter.Close(context.Background()))
	require.NoError(t, emitter.Close(context.Background()))

	emitter.LogEvent(context.Background(), Event{})
	assert.Equal(t, []string{"closed"}, failures.snapshot())

	var nilEmitter *Emitter
	nilEmitter.LogEvent(context.Background(), Event{})
}

func TestEmitterCloseHonoursContext(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{}), store: NewMemoryStore()}
	emitter := NewEmitter(sink, EmitterConfig{})
	emitter.LogEvent(context.Background(), Event{})
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, emitter.Close(ctx), context.DeadlineExceeded)
	close(sink.release)
}
