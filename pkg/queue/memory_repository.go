package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/notifications"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu         sync.Mutex
	tasks      map[uuid.UUID]*Task
	maxRetries int8
}

// MemoryRepositoryOption configures a MemoryRepository.
type MemoryRepositoryOption func(*MemoryRepository)

// WithTaskMaxRetries sets the retry ceiling stamped on new tasks.
func WithTaskMaxRetries(n int8) MemoryRepositoryOption {
	return func(r *MemoryRepository) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

// NewMemoryRepository creates an empty in-memory task repository.
func NewMemoryRepository(opts ...MemoryRepositoryOption) *MemoryRepository {
	r := &MemoryRepository{
		tasks:      make(map[uuid.UUID]*Task),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRepository) Enqueue(ctx context.Context, notifID string, channel notifications.Channel, dueAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := &Task{
		ID:             uuid.New(),
		NotificationID: notifID,
		Channel:        channel,
		Status:         TaskStatusPending,
		MaxRetries:     r.maxRetries,
		ScheduledAt:    dueAt,
		CreatedAt:      time.Now().UTC(),
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *MemoryRepository) Claim(ctx context.Context, workerID uuid.UUID, lockDuration time.Duration) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var oldest *Task
	for _, t := range r.tasks {
		if !claimable(t, now) {
			continue
		}
		if oldest == nil || t.ScheduledAt.Before(oldest.ScheduledAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, ErrNoTaskToClaim
	}

	until := now.Add(lockDuration)
	oldest.Status = TaskStatusProcessing
	oldest.LockedUntil = &until
	oldest.LockedBy = &workerID

	cp := *oldest
	return &cp, nil
}

func claimable(t *Task, now time.Time) bool {
	switch t.Status {
	case TaskStatusPending:
		return !t.ScheduledAt.After(now)
	case TaskStatusProcessing:
		// Expired lock means the claiming worker died mid-flight.
		return t.LockedUntil != nil && t.LockedUntil.Before(now)
	default:
		return false
	}
}

func (r *MemoryRepository) Complete(ctx context.Context, taskID uuid.UUID) error {
	return r.update(taskID, func(t *Task) {
		now := time.Now().UTC()
		t.Status = TaskStatusCompleted
		t.ProcessedAt = &now
		t.LockedUntil = nil
		t.LockedBy = nil
	})
}

func (r *MemoryRepository) Fail(ctx context.Context, taskID uuid.UUID, errMsg string) error {
	return r.update(taskID, func(t *Task) {
		t.Status = TaskStatusFailed
		t.RetryCount++
		t.LastError = &errMsg
		t.LockedUntil = nil
		t.LockedBy = nil
	})
}

func (r *MemoryRepository) Requeue(ctx context.Context, taskID uuid.UUID, dueAt time.Time) error {
	return r.update(taskID, func(t *Task) {
		t.Status = TaskStatusPending
		t.ScheduledAt = dueAt
		t.LockedUntil = nil
		t.LockedBy = nil
	})
}

func (r *MemoryRepository) Get(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) update(taskID uuid.UUID, fn func(*Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	fn(t)
	return nil
}
