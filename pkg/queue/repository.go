package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/notifications"
)

// Repository persists delivery tasks. Claim is the serialization
// point: exactly one worker wins a due pending task.
type Repository interface {
	// Enqueue creates a pending task due at the given time. Satisfies
	// notifications.TaskEnqueuer.
	Enqueue(ctx context.Context, notifID string, channel notifications.Channel, dueAt time.Time) error

	// Claim atomically claims the oldest due pending task, locking it
	// for the worker until now+lockDuration. Returns ErrNoTaskToClaim
	// when nothing is due. Tasks whose lock expired count as due.
	Claim(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error)

	// Complete marks a claimed task done and releases the lock.
	Complete(ctx context.Context, taskID uuid.UUID) error

	// Fail records a delivery error and increments the retry count. The
	// task stays failed until Requeue moves it back to pending.
	Fail(ctx context.Context, taskID uuid.UUID, errMsg string) error

	// Requeue returns a failed task to pending with a new due time.
	Requeue(ctx context.Context, taskID uuid.UUID, dueAt time.Time) error

	// Get returns a task by id or ErrTaskNotFound.
	Get(ctx context.Context, taskID uuid.UUID) (*Task, error)
}
