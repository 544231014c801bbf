package queue

import "errors"

var (
	// ErrRepositoryNil is returned when a nil repository is provided.
	ErrRepositoryNil = errors.New("queue: repository cannot be nil")

	// ErrEngineNil is returned when a nil notification engine is provided.
	ErrEngineNil = errors.New("queue: engine cannot be nil")

	// ErrNoTaskToClaim is returned by Claim when no task is due.
	ErrNoTaskToClaim = errors.New("queue: no task to claim")

	// ErrTaskNotFound is returned when a task id does not exist.
	ErrTaskNotFound = errors.New("queue: task not found")

	// ErrNoAdapter is recorded when a task names a channel no adapter
	// serves.
	ErrNoAdapter = errors.New("queue: no adapter for channel")

	// ErrWorkerAlreadyStarted is returned by Start on a running worker.
	ErrWorkerAlreadyStarted = errors.New("queue: worker already started")

	// ErrWorkerNotStarted is returned by Stop on a stopped worker.
	ErrWorkerNotStarted = errors.New("queue: worker not started")
)
