package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
	"github.com/mentorhub/pulse/pkg/webhook"
)

// Deliverer performs the actual channel delivery. The channels package
// provides the real implementation; the indirection keeps the worker
// testable without transports.
type Deliverer interface {
	Deliver(ctx context.Context, notif notifications.Notification, ch notifications.Channel) error
}

// Worker claims delivery tasks and executes them against channel
// adapters with bounded concurrency. Failures requeue the task with a
// backoff due time instead of blocking a worker slot.
type Worker struct {
	repo      Repository
	engine    *notifications.Engine
	deliverer Deliverer
	backoff   webhook.BackoffStrategy

	workerID       uuid.UUID
	sem            chan struct{}
	pollInterval   time.Duration
	adapterTimeout time.Duration
	lockTimeout    time.Duration
	log            *slog.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger for the Worker.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b webhook.BackoffStrategy) WorkerOption {
	return func(w *Worker) {
		if b != nil {
			w.backoff = b
		}
	}
}

// NewWorker creates a delivery worker pool.
func NewWorker(cfg Config, repo Repository, engine *notifications.Engine, deliverer Deliverer, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if engine == nil {
		return nil, ErrEngineNil
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 5 * time.Second
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = time.Minute
	}

	w := &Worker{
		repo:           repo,
		engine:         engine,
		deliverer:      deliverer,
		backoff:        webhook.DefaultBackoffStrategy(),
		workerID:       uuid.New(),
		sem:            make(chan struct{}, cfg.MaxConcurrent),
		pollInterval:   cfg.PollInterval,
		adapterTimeout: cfg.AdapterTimeout,
		lockTimeout:    cfg.LockTimeout,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins claiming tasks in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerAlreadyStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.stopping.Store(false)
	go w.run(ctx)

	w.log.Info("delivery worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))
	return nil
}

// Stop cancels claiming and waits for in-flight deliveries to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return ErrWorkerNotStarted
	}

	w.stopping.Store(true)
	cancel()
	w.wg.Wait()

	w.log.Info("delivery worker stopped", slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run starts the worker and blocks until ctx is cancelled. Suitable
// for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims tasks until the queue is empty or every slot is busy.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		if w.stopping.Load() {
			<-w.sem
			return
		}

		task, err := w.repo.Claim(ctx, w.workerID, w.lockTimeout)
		if err != nil {
			<-w.sem
			if !errors.Is(err, ErrNoTaskToClaim) && !errors.Is(err, context.Canceled) {
				w.log.ErrorContext(ctx, "failed to claim delivery task", logger.Error(err))
			}
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(task)
		}()
	}
}

// process executes one claimed task. Delivery runs on a fresh context
// so graceful shutdown lets in-flight sends finish.
func (w *Worker) process(task *Task) {
	ctx, cancel := context.WithTimeout(context.Background(), w.adapterTimeout)
	defer cancel()

	notif, err := w.engine.GetForDelivery(ctx, task.NotificationID)
	if err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			// Deleted between enqueue and claim; nothing to deliver.
			w.complete(ctx, task)
			return
		}
		w.retryLater(ctx, task, nil, err)
		return
	}

	if notif.IsExpired() {
		w.recordAttempt(ctx, task, notifications.DeliveryAttempt{
			Channel: task.Channel,
			Final:   true,
			Reason:  "expired",
		})
		w.complete(ctx, task)
		return
	}

	prefs, err := w.engine.Preferences(ctx, notif.UserID)
	if err != nil {
		w.retryLater(ctx, task, notif, err)
		return
	}
	if suppressed, reason := prefs.Suppressed(time.Now(), notif.Priority); suppressed {
		// Recorded as a no-op success so the notification still reaches
		// a terminal state.
		w.recordAttempt(ctx, task, notifications.DeliveryAttempt{
			Channel: task.Channel,
			Success: true,
			Reason:  reason,
		})
		w.complete(ctx, task)
		return
	}

	if w.deliverer == nil {
		err = ErrNoAdapter
	} else {
		err = w.deliverer.Deliver(ctx, *notif, task.Channel)
	}
	if err != nil {
		w.retryLater(ctx, task, notif, err)
		return
	}

	w.recordAttempt(ctx, task, notifications.DeliveryAttempt{
		Channel: task.Channel,
		Success: true,
	})
	w.complete(ctx, task)
}

// retryLater records the failure and either requeues the task with a
// backoff due time or, when retries are exhausted, marks the channel
// terminally failed.
func (w *Worker) retryLater(ctx context.Context, task *Task, notif *notifications.Notification, deliverErr error) {
	if err := w.repo.Fail(ctx, task.ID, deliverErr.Error()); err != nil {
		w.log.ErrorContext(ctx, "failed to record task failure",
			slog.String("task_id", task.ID.String()),
			logger.Error(err))
		return
	}
	task.RetryCount++

	// Attempts before a delivery was actually tried (notif == nil after
	// a failed fetch) are only recorded once retries are exhausted, so
	// the channel still reaches a terminal outcome.
	exhausted := task.Exhausted()
	if notif != nil || exhausted {
		w.recordAttempt(ctx, task, notifications.DeliveryAttempt{
			Channel: task.Channel,
			Final:   exhausted,
			Error:   deliverErr.Error(),
		})
	}

	if exhausted {
		w.log.ErrorContext(ctx, "channel delivery exhausted",
			logger.NotificationID(task.NotificationID),
			logger.Channel(string(task.Channel)),
			logger.RetryCount(int(task.RetryCount)),
			logger.Error(deliverErr))
		return
	}

	dueAt := time.Now().UTC().Add(w.backoff.NextInterval(int(task.RetryCount)))
	if err := w.repo.Requeue(ctx, task.ID, dueAt); err != nil {
		w.log.ErrorContext(ctx, "failed to requeue task",
			slog.String("task_id", task.ID.String()),
			logger.Error(err))
	}
}

func (w *Worker) recordAttempt(ctx context.Context, task *Task, attempt notifications.DeliveryAttempt) {
	if _, err := w.engine.RecordAttempt(ctx, task.NotificationID, attempt); err != nil {
		w.log.ErrorContext(ctx, "failed to record delivery attempt",
			logger.NotificationID(task.NotificationID),
			logger.Channel(string(task.Channel)),
			logger.Error(err))
	}
}

func (w *Worker) complete(ctx context.Context, task *Task) {
	if err := w.repo.Complete(ctx, task.ID); err != nil {
		w.log.ErrorContext(ctx, "failed to complete task",
			slog.String("task_id", task.ID.String()),
			logger.Error(err))
	}
}
