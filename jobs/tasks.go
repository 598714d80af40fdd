package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/staffhub/staffhub/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueAudit carries audit events waiting to be persisted.
	QueueAudit = "audit"

	// TaskAuditRecord persists one audit event.
	TaskAuditRecord = "audit:record"
	// TaskMatrixReconcile validates the stored role matrix and asks every
	// instance to reload it.
	TaskMatrixReconcile = "rbac:matrix-reconcile"
)

// NewAuditRecordTask wraps event in a task. The event id doubles as the task
// id so a re-enqueued event is rejected by the queue.
func NewAuditRecordTask(event audit.Event) (*asynq.Task, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, body,
		asynq.Queue(QueueAudit),
		asynq.TaskID(event.ID),
		asynq.MaxRetry(10),
		asynq.Retention(time.Hour),
	), nil
}

// MatrixReconcilePayload is the body of TaskMatrixReconcile.
type MatrixReconcilePayload struct {
	Reason string `json:"reason"`
}

// NewMatrixReconcileTask builds a reconcile task.
func NewMatrixReconcileTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(MatrixReconcilePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatrixReconcile, body, asynq.Queue(QueueDefault)), nil
}
