// Package task owns the asynchronous task lifecycle: creation, scheduling on
// a bounded worker pool, status transitions, retry and cancellation.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// Handler processes one task's input and returns the output payload and an
// optional overall confidence.
type Handler func(ctx context.Context, t *entity.Task) (json.RawMessage, *float32, error)

// Orchestrator drives tasks through pending → processing → terminal. Workers
// are drawn from a bounded pool sized to respect the downstream rate limiter.
// Tasks are independent; concurrent creation of logically-identical work is
// the caller's concern, not deduplicated here.
type Orchestrator struct {
	repo     Repository
	pool     *ants.Pool
	handlers map[constants.TaskType]Handler
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	poolSize int
	timeout  time.Duration
}

// WithPoolSize bounds concurrent workers. Size this to the rate ceiling, not
// to CPU count: the work is I/O-bound.
func WithPoolSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithTaskTimeout bounds one task's processing, retries and backoff
// included, so a stuck task surfaces as failed.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewOrchestrator(repo Repository, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config{poolSize: 4, timeout: 3 * time.Minute}
	for _, o := range opts {
		o(&cfg)
	}

	pool, err := ants.NewPool(cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Orchestrator{
		repo:     repo,
		pool:     pool,
		handlers: make(map[constants.TaskType]Handler),
		timeout:  cfg.timeout,
		log:      logger,
	}, nil
}

// RegisterHandler binds a task type to its processing function. Not safe to
// call after Create traffic starts.
func (o *Orchestrator) RegisterHandler(t constants.TaskType, h Handler) {
	o.handlers[t] = h
}

// maxInputBytes bounds one task payload. Attachments are base64 inside the
// payload, so this is roughly a 12 MB email.
const maxInputBytes = 16 << 20

// Create persists a pending task and schedules it for asynchronous
// processing.
func (o *Orchestrator) Create(ctx context.Context, ownerID uuid.UUID, taskType constants.TaskType, input json.RawMessage) (*entity.Task, error) {
	if !constants.ValidTaskType(taskType) {
		return nil, common.NewAppError("INVALID_TASK_TYPE", fmt.Sprintf("unknown task type: %s", taskType), common.ErrInvalidInput)
	}
	if _, ok := o.handlers[taskType]; !ok {
		return nil, common.NewAppError("NO_HANDLER", fmt.Sprintf("no handler registered for %s", taskType), common.ErrInvalidInput)
	}

	owner := ""
	if ownerID != uuid.Nil {
		owner = ownerID.String()
	}
	v := common.NewValidator().
		Field("owner_id", owner, common.Required, common.UUID).
		Field("input", []byte(input), common.Required, common.MaxBytes(maxInputBytes))
	if v.HasErrors() {
		return nil, common.NewAppError("INVALID_TASK_INPUT", v.ErrorMessage(), common.ErrValidation)
	}

	now := time.Now().UTC()
	t := &entity.Task{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Type:      taskType,
		Status:    constants.TaskStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	o.log.Info("task.created", "task_id", t.ID, "type", taskType, "owner_id", ownerID)
	o.schedule(t.ID)
	return t, nil
}

// Get returns the current state of a task.
func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	return o.repo.GetByID(ctx, id)
}

// Cancel marks a task cancelled. A no-op on an already-terminal task. A task
// already in flight keeps running; its completion update is discarded. The
// write is conditional on the status Cancel observed, so a task that reaches
// a terminal state mid-call is never stamped over.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) error {
	for {
		t, err := o.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.Terminal() {
			return nil
		}
		prev := t.Status
		t.Status = constants.TaskStatusCancelled
		t.UpdatedAt = time.Now().UTC()
		err = o.repo.UpdateIfStatus(ctx, t, prev)
		if errors.Is(err, common.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		o.log.Info("task.cancelled", "task_id", id)
		return nil
	}
}

// Retry re-enqueues a failed or cancelled task: status returns to pending,
// the attempt counter increments, the prior error is cleared.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	t, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != constants.TaskStatusFailed && t.Status != constants.TaskStatusCancelled {
		return nil, common.NewAppError("NOT_RETRYABLE", fmt.Sprintf("task %s is %s", id, t.Status), common.ErrInvalidInput)
	}

	prev := t.Status
	t.Status = constants.TaskStatusPending
	t.Attempts++
	t.ErrorMsg = nil
	t.UpdatedAt = time.Now().UTC()
	if err := o.repo.UpdateIfStatus(ctx, t, prev); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// A concurrent retry or cancel moved the task first.
			return nil, common.NewAppError("NOT_RETRYABLE", fmt.Sprintf("task %s changed state", id), common.ErrConflict)
		}
		return nil, err
	}

	o.log.Info("task.retry", "task_id", id, "attempt", t.Attempts)
	o.schedule(id)
	return t, nil
}

// ResumePending schedules tasks left pending by a previous run. Called once
// at startup; double-scheduling a task is harmless (the second pickup finds
// it no longer pending) but wasteful, so this is not polled.
func (o *Orchestrator) ResumePending(ctx context.Context) (int, error) {
	pending, err := o.repo.ListByStatus(ctx, constants.TaskStatusPending, 0)
	if err != nil {
		return 0, err
	}
	for _, t := range pending {
		if _, ok := o.handlers[t.Type]; !ok {
			o.log.Warn("task.resume_skipped", "task_id", t.ID, "type", t.Type)
			continue
		}
		o.schedule(t.ID)
	}
	if len(pending) > 0 {
		o.log.Info("task.resumed", "count", len(pending))
	}
	return len(pending), nil
}

// Shutdown waits for in-flight work, bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() { defer close(done); o.wg.Wait() }()
	select {
	case <-ctx.Done():
		o.log.Warn("orchestrator shutdown interrupted by context")
	case <-done:
		o.log.Info("orchestrator drained, shutdown complete")
	}
	o.pool.Release()
}

func (o *Orchestrator) schedule(id uuid.UUID) {
	o.wg.Add(1)
	err := o.pool.Submit(func() {
		defer o.wg.Done()
		o.process(id)
	})
	if err != nil {
		o.wg.Done()
		o.log.Error("task.schedule_failed", "task_id", id, "error", err)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		o.markFailed(ctx, id, fmt.Sprintf("schedule: %v", err))
	}
}

func (o *Orchestrator) process(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	t, err := o.repo.GetByID(ctx, id)
	if err != nil {
		o.log.Error("task.load_failed", "task_id", id, "error", err)
		return
	}
	// Cancelled (or otherwise moved on) before pickup.
	if t.Status != constants.TaskStatusPending {
		o.log.Debug("task.skip", "task_id", id, "status", t.Status)
		return
	}

	t.Status = constants.TaskStatusProcessing
	t.UpdatedAt = time.Now().UTC()
	if err := o.repo.UpdateIfStatus(ctx, t, constants.TaskStatusPending); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Cancelled, or a duplicate pickup lost the claim.
			o.log.Debug("task.skip", "task_id", id, "error", err)
			return
		}
		o.log.Error("task.transition_failed", "task_id", id, "error", err)
		return
	}

	handler := o.handlers[t.Type]
	start := time.Now()
	output, confidence, err := handler(ctx, t)
	if err != nil {
		o.log.Error("task.processing_failed",
			"task_id", id, "type", t.Type, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		o.markFailed(context.WithoutCancel(ctx), id, err.Error())
		return
	}

	o.complete(context.WithoutCancel(ctx), id, output, confidence)
	o.log.Info("task.completed",
		"task_id", id, "type", t.Type,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// complete is the terminal-success transition. processed_at is set exactly
// once, on the first transition into completed or failed. The conditional
// write keeps a cancel that lands mid-call from being stamped over.
func (o *Orchestrator) complete(ctx context.Context, id uuid.UUID, output json.RawMessage, confidence *float32) {
	for {
		t, err := o.repo.GetByID(ctx, id)
		if err != nil {
			o.log.Error("task.complete_load_failed", "task_id", id, "error", err)
			return
		}
		// A cancel won the race; the result is discarded.
		if t.Terminal() {
			o.log.Debug("task.complete_discarded", "task_id", id, "status", t.Status)
			return
		}

		prev := t.Status
		now := time.Now().UTC()
		t.Status = constants.TaskStatusCompleted
		t.Output = output
		t.Confidence = confidence
		t.UpdatedAt = now
		if t.ProcessedAt == nil {
			t.ProcessedAt = &now
		}
		err = o.repo.UpdateIfStatus(ctx, t, prev)
		if errors.Is(err, common.ErrConflict) {
			continue
		}
		if err != nil {
			o.log.Error("task.complete_failed", "task_id", id, "error", err)
		}
		return
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, id uuid.UUID, msg string) {
	for {
		t, err := o.repo.GetByID(ctx, id)
		if err != nil {
			o.log.Error("task.fail_load_failed", "task_id", id, "error", err)
			return
		}
		if t.Terminal() {
			return
		}

		prev := t.Status
		now := time.Now().UTC()
		t.Status = constants.TaskStatusFailed
		t.ErrorMsg = &msg
		t.UpdatedAt = now
		if t.ProcessedAt == nil {
			t.ProcessedAt = &now
		}
		err = o.repo.UpdateIfStatus(ctx, t, prev)
		if errors.Is(err, common.ErrConflict) {
			continue
		}
		if err != nil {
			o.log.Error("task.fail_update_failed", "task_id", id, "error", err)
		}
		return
	}
}
