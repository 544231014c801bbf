package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/notifications"
)

// TaskStatus is the lifecycle state of a delivery task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of channel delivery work: deliver one notification
// over one channel. Claiming sets the lock fields; a task whose lock
// expired is claimable again so a crashed worker cannot strand work.
type Task struct {
	ID             uuid.UUID             `json:"id"`
	NotificationID string                `json:"notification_id"`
	Channel        notifications.Channel `json:"channel"`
	Status         TaskStatus            `json:"status"`
	RetryCount     int8                  `json:"retry_count"`
	MaxRetries     int8                  `json:"max_retries"`
	ScheduledAt    time.Time             `json:"scheduled_at"`
	LockedUntil    *time.Time            `json:"locked_until,omitempty"`
	LockedBy       *uuid.UUID            `json:"locked_by,omitempty"`
	ProcessedAt    *time.Time            `json:"processed_at,omitempty"`
	LastError      *string               `json:"last_error,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Exhausted reports whether the task has no retries left.
func (t *Task) Exhausted() bool {
	return t.RetryCount >= t.MaxRetries
}
