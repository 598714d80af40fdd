package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/staffhub/staffhub/internal/audit"
	jobmetrics "github.com/staffhub/staffhub/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuditQueueSink hands audit events to the worker through the queue. It is
// used as the audit.Emitter sink when API instances should not write to
// Postgres directly.
type AuditQueueSink struct {
	client Enqueuer
}

// NewAuditQueueSink builds the sink.
func NewAuditQueueSink(client Enqueuer) *AuditQueueSink {
	return &AuditQueueSink{client: client}
}

// Record enqueues the event.
func (s *AuditQueueSink) Record(ctx context.Context, event audit.Event) error {
	task, err := NewAuditRecordTask(event)
	if err != nil {
		return fmt.Errorf("audit queue: build task: %w", err)
	}
	_, err = s.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit queue: enqueue: %w", err)
	}
	return nil
}

// AuditRecordJob writes queued audit events to the durable store.
type AuditRecordJob struct {
	Sink    audit.Sink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditRecordJob wires dependencies for the audit handler.
func NewAuditRecordJob(sink audit.Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRecordJob {
	return &AuditRecordJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAuditRecord tasks.
func (j *AuditRecordJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sink == nil {
		return errors.New("audit record: handler not configured")
	}
	var event audit.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		j.logger().Error("decode audit task", slog.Any("error", err))
		return fmt.Errorf("audit record: %v: %w", err, asynq.SkipRetry)
	}
	if event.ID == "" || event.EventType == "" {
		return fmt.Errorf("audit record: incomplete event: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskAuditRecord)
	err := j.Sink.Record(ctx, event)
	if err != nil {
		j.logger().Warn("record audit event",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.EventType)),
			slog.Any("error", err))
	}
	return tracker.End(err)
}

func (j *AuditRecordJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuditRecordJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
