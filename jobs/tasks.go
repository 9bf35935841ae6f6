package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-ops/meridian/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers one queued proposal email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// idempotency keys older than this are safe to drop
const idempotencyRetention = 48 * time.Hour

// SendEmailPayload identifies the email row to deliver. The row itself holds
// recipient, subject and body so retries always see current state.
type SendEmailPayload struct {
	EmailID int64 `json:"email_id"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// Deliverer sends one queued email by id.
type Deliverer interface {
	Deliver(ctx context.Context, emailID int64) error
}

// NewSendEmailHandler builds the handler for TaskTypeSendEmail.
func NewSendEmailHandler(deliverer Deliverer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return deliverer.Deliver(ctx, payload.EmailID)
	}
}

// NewIdempotencyCleanupHandler builds the handler for the cleanup task.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			logger.Error("idempotency cleanup failed", "error", err)
			return err
		}
		return nil
	}
}
