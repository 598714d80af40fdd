package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/staffhub/staffhub/internal/jobs"
	"github.com/staffhub/staffhub/internal/rbac"
)

// Publisher announces a matrix version to running instances.
type Publisher interface {
	Publish(ctx context.Context, version int64) error
}

// MatrixReconcileJob re-reads the stored role matrix and, when it is valid,
// broadcasts a reload. It covers instances that missed a pub/sub message.
type MatrixReconcileJob struct {
	Source    rbac.MatrixSource
	Publisher Publisher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewMatrixReconcileJob wires dependencies for the reconcile handler.
func NewMatrixReconcileJob(source rbac.MatrixSource, publisher Publisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *MatrixReconcileJob {
	return &MatrixReconcileJob{
		Source:    source,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
		clock:     time.Now,
	}
}

// Handle processes TaskMatrixReconcile tasks.
func (j *MatrixReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("matrix reconcile: handler not configured")
	}
	var payload MatrixReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("matrix reconcile: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskMatrixReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	defs, err := j.Source.Load(ctx)
	if err != nil {
		resultErr = fmt.Errorf("matrix reconcile: load: %w", err)
		logger.Error("load role matrix", slog.Any("error", err))
		return resultErr
	}
	m, err := rbac.BuildMatrix(defs)
	if err != nil {
		// Invalid matrices need an admin fix; no retry.
		resultErr = fmt.Errorf("matrix reconcile: %v: %w", err, asynq.SkipRetry)
		logger.Error("stored role matrix invalid", slog.Any("error", err))
		return resultErr
	}
	if ignored := m.Ignored(); len(ignored) > 0 {
		logger.Warn("role matrix has unknown permissions", slog.Any("ignored", ignored))
	}
	if j.Publisher != nil {
		if err := j.Publisher.Publish(ctx, j.clock().Unix()); err != nil {
			resultErr = fmt.Errorf("matrix reconcile: publish: %w", err)
			logger.Error("publish matrix reload", slog.Any("error", err))
			return resultErr
		}
	}
	logger.Info("role matrix reconciled", slog.Int("roles", len(defs)))
	return resultErr
}

func (j *MatrixReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *MatrixReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
