package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when a state change is rejected.
// The task is left untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrScheduleConflict is returned when concurrent ordering edits kept racing
// after retries. Callers may resubmit.
var ErrScheduleConflict = errors.New("schedule conflict")

// moveRetries bounds retry-on-conflict for kanban reordering
const moveRetries = 3

// Engine is the task lifecycle state machine. It owns status, kanban
// position, Eisenhower quadrant, blocked flag and the due/remind window, and
// publishes the lifecycle events the notification scheduler consumes.
type Engine struct {
	tasks  database.TaskRepositoryInterface
	bus    events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a lifecycle engine
func NewEngine(tasks database.TaskRepositoryInterface, bus events.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		tasks:  tasks,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// canTransition applies the reachability rules: every status reaches every
// other, except archived, which is terminal and only restores back to inbox.
func canTransition(from, to models.TaskStatus) bool {
	if from == models.TaskStatusArchived {
		return to == models.TaskStatusInbox
	}
	return true
}

// Create persists a new task. When it arrives with a due window set, a
// due_changed event is emitted so reminders materialize without waiting for
// the next scan.
func (e *Engine) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusInbox
	}
	if !models.ValidStatus(task.Status) {
		return fmt.Errorf("unknown status %q: %w", task.Status, ErrInvalidTransition)
	}
	if task.KanbanColumn == "" {
		task.KanbanColumn = models.DefaultKanbanColumn
	}
	if task.DueAt != nil && task.RemindAt != nil && task.RemindAt.After(*task.DueAt) {
		return fmt.Errorf("remind_at after due_at: %w", ErrInvalidTransition)
	}

	// Appending to a column can race other creates and moves over the same
	// slot; the repository reports that as ErrConflict and the insert is
	// safe to resubmit.
	err := e.tasks.Create(ctx, task)
	for attempt := 1; errors.Is(err, database.ErrConflict) && attempt < moveRetries; attempt++ {
		e.logger.Warn("kanban_create_conflict",
			zap.String("task_id", task.ID.String()),
			zap.Int("attempt", attempt),
		)
		err = e.tasks.Create(ctx, task)
	}
	if errors.Is(err, database.ErrConflict) {
		return fmt.Errorf("create of %s kept conflicting: %w", task.ID, ErrScheduleConflict)
	}
	if err != nil {
		return err
	}

	if task.DueAt != nil || task.RemindAt != nil {
		ev := events.NewEvent(events.EventDueChanged, task.UserID, &task.ID)
		ev.NewDueAt = task.DueAt
		ev.NewRemindAt = task.RemindAt
		e.publish(ctx, ev)
	}
	return nil
}

// Transition moves a task to targetStatus. Entering done stamps completed_at
// and emits task_completed; leaving done clears it.
func (e *Engine) Transition(ctx context.Context, taskID uuid.UUID, target models.TaskStatus) (*models.Task, error) {
	if !models.ValidStatus(target) {
		return nil, fmt.Errorf("unknown status %q: %w", target, ErrInvalidTransition)
	}

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == target {
		return task, nil
	}
	if !canTransition(task.Status, target) {
		return nil, fmt.Errorf("cannot transition %s from %s to %s: %w", taskID, task.Status, target, ErrInvalidTransition)
	}

	wasDone := task.Status == models.TaskStatusDone
	task.Status = target

	switch {
	case target == models.TaskStatusDone:
		now := e.now()
		task.CompletedAt = &now
	case wasDone:
		task.CompletedAt = nil
	}

	if err := e.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if target == models.TaskStatusDone || target == models.TaskStatusArchived {
		// Both stop any pending reminders
		ev := events.NewEvent(events.EventTaskCompleted, task.UserID, &task.ID)
		e.publish(ctx, ev)
	}

	e.logger.Info("task_transitioned",
		zap.String("task_id", task.ID.String()),
		zap.String("status", string(target)),
	)
	return task, nil
}

// Reclassify reassigns a task's Eisenhower quadrant. Pure persistence, no
// side effects on status or scheduling.
func (e *Engine) Reclassify(ctx context.Context, taskID uuid.UUID, quadrant models.EisenhowerQuadrant) (*models.Task, error) {
	if !models.ValidQuadrant(quadrant) {
		return nil, fmt.Errorf("unknown quadrant %q: %w", quadrant, ErrInvalidTransition)
	}

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusArchived {
		return nil, fmt.Errorf("cannot reclassify archived task %s: %w", taskID, ErrInvalidTransition)
	}

	task.EisenhowerQuadrant = &quadrant
	if err := e.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MoveInColumn moves a task to a 0-based position in a kanban column.
// Ordering races are retried; exhausted retries surface as ErrScheduleConflict.
func (e *Engine) MoveInColumn(ctx context.Context, taskID uuid.UUID, column string, position int) (*models.Task, error) {
	if column == "" {
		return nil, fmt.Errorf("empty kanban column: %w", ErrInvalidTransition)
	}
	if position < 0 {
		return nil, fmt.Errorf("negative kanban position: %w", ErrInvalidTransition)
	}

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusArchived {
		return nil, fmt.Errorf("cannot move archived task %s: %w", taskID, ErrInvalidTransition)
	}

	var moved *models.Task
	for attempt := 0; attempt < moveRetries; attempt++ {
		moved, err = e.tasks.MoveInColumn(ctx, taskID, column, position)
		if err == nil {
			return moved, nil
		}
		if !errors.Is(err, database.ErrConflict) {
			return nil, err
		}
		e.logger.Warn("kanban_move_conflict",
			zap.String("task_id", taskID.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("move of %s kept conflicting: %w", taskID, ErrScheduleConflict)
}

// SetDueWindow updates a task's due and remind timestamps and emits a
// due_changed event carrying both old and new values, so the scheduler can
// cancel stale notifications and materialize new ones.
func (e *Engine) SetDueWindow(ctx context.Context, taskID uuid.UUID, dueAt, remindAt *time.Time) (*models.Task, error) {
	if dueAt != nil && remindAt != nil && remindAt.After(*dueAt) {
		return nil, fmt.Errorf("remind_at after due_at: %w", ErrInvalidTransition)
	}

	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusArchived {
		return nil, fmt.Errorf("cannot reschedule archived task %s: %w", taskID, ErrInvalidTransition)
	}

	oldDue, oldRemind := task.DueAt, task.RemindAt
	task.DueAt = dueAt
	task.RemindAt = remindAt
	if err := e.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	ev := events.NewEvent(events.EventDueChanged, task.UserID, &task.ID)
	ev.OldDueAt = oldDue
	ev.NewDueAt = dueAt
	ev.OldRemindAt = oldRemind
	ev.NewRemindAt = remindAt
	e.publish(ctx, ev)

	return task, nil
}

// Block marks a task blocked with an optional reason. Status is untouched.
func (e *Engine) Block(ctx context.Context, taskID uuid.UUID, reason string) (*models.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusArchived {
		return nil, fmt.Errorf("cannot block archived task %s: %w", taskID, ErrInvalidTransition)
	}

	task.IsBlocked = true
	task.BlockedReason = reason
	if err := e.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Unblock clears the blocked flag and reason
func (e *Engine) Unblock(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.IsBlocked = false
	task.BlockedReason = ""
	if err := e.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task and emits task_deleted so pending reminders die with it
func (e *Engine) Delete(ctx context.Context, taskID uuid.UUID) error {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if err := e.tasks.Delete(ctx, taskID); err != nil {
		return err
	}

	ev := events.NewEvent(events.EventTaskDeleted, task.UserID, &task.ID)
	e.publish(ctx, ev)
	return nil
}

// publish sends a lifecycle event. A lost event is not fatal: creations are
// recovered by the scheduler's periodic scan, cancels by the dispatcher's
// pre-send cause check.
func (e *Engine) publish(ctx context.Context, ev *events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, ev); err != nil {
		e.logger.Warn("failed_to_publish_lifecycle_event",
			zap.String("event_type", string(ev.Type)),
			zap.Error(err),
		)
	}
}
