package scheduler

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

// Config controls notification materialization
type Config struct {
	// LookaheadHorizon bounds how far ahead of now notifications are
	// materialized into rows; far-future due dates wait for a later scan
	LookaheadHorizon time.Duration
	// LeadTime is the default reminder offset before due_at when a task has
	// no explicit remind_at
	LeadTime time.Duration
	// ScanInterval is how often the periodic scan re-evaluates tasks
	// approaching the horizon boundary
	ScanInterval time.Duration
}

// DefaultConfig matches the documented defaults: 24h horizon, 1h lead, 1m scan
var DefaultConfig = Config{
	LookaheadHorizon: 24 * time.Hour,
	LeadTime:         time.Hour,
	ScanInterval:     time.Minute,
}

// Scheduler keeps the notification store consistent with task due/remind
// state: lifecycle events cancel stale rows and materialize new ones, and a
// periodic scan picks up rows the lookahead had previously deferred. Both
// paths are idempotent against the pending-uniqueness constraint.
type Scheduler struct {
	tasks         database.TaskRepositoryInterface
	notifications database.NotificationRepositoryInterface
	prefs         database.PreferencesRepositoryInterface
	bus           events.Bus
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a scheduler
func New(
	tasks database.TaskRepositoryInterface,
	notifications database.NotificationRepositoryInterface,
	prefs database.PreferencesRepositoryInterface,
	bus events.Bus,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if cfg.LookaheadHorizon <= 0 {
		cfg.LookaheadHorizon = DefaultConfig.LookaheadHorizon
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = DefaultConfig.LeadTime
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultConfig.ScanInterval
	}
	return &Scheduler{
		tasks:         tasks,
		notifications: notifications,
		prefs:         prefs,
		bus:           bus,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// reminderTimes derives each notification type's scheduled time from the
// task's due/remind window: due_soon at remind_at, else due_at minus the lead
// time; overdue at due_at itself.
func (s *Scheduler) reminderTimes(task *models.Task) map[models.NotificationType]time.Time {
	out := make(map[models.NotificationType]time.Time, 2)
	switch {
	case task.RemindAt != nil:
		out[models.NotificationDueSoon] = *task.RemindAt
	case task.DueAt != nil:
		out[models.NotificationDueSoon] = task.DueAt.Add(-s.cfg.LeadTime)
	}
	if task.DueAt != nil {
		out[models.NotificationOverdue] = *task.DueAt
	}
	return out
}

// MaterializeTask creates the pending notifications the task's current
// due/remind state implies, one per enabled channel, for every reminder time
// inside the lookahead horizon. Existing pending rows for the same cause are
// left alone, so re-running is safe.
func (s *Scheduler) MaterializeTask(ctx context.Context, task *models.Task) error {
	if !task.IsActive() {
		return nil
	}

	times := s.reminderTimes(task)
	if len(times) == 0 {
		return nil
	}

	prefs, err := s.prefs.GetByUserID(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("failed to load channel preferences: %w", err)
	}
	enabled := prefs.EnabledChannels()
	if len(enabled) == 0 {
		return nil
	}

	horizon := s.now().Add(s.cfg.LookaheadHorizon)
	payload, err := models.EncodeReminderPayload(models.TaskReminderPayload{
		TaskID:   task.ID,
		Title:    task.Title,
		Priority: task.Priority,
		DueAt:    task.DueAt,
	})
	if err != nil {
		return err
	}

	created := 0
	for typ, at := range times {
		if at.After(horizon) {
			continue
		}
		for _, channel := range enabled {
			n := &models.Notification{
				ID:          uuid.New(),
				UserID:      task.UserID,
				TaskID:      &task.ID,
				Channel:     channel,
				Type:        typ,
				Payload:     payload,
				ScheduledAt: at,
			}
			ok, err := s.notifications.Create(ctx, n)
			if err != nil {
				return fmt.Errorf("failed to materialize %s/%s: %w", typ, channel, err)
			}
			if ok {
				created++
			}
		}
	}

	if created > 0 {
		s.logger.Info("materialized_notifications",
			zap.String("task_id", task.ID.String()),
			zap.Int("created", created),
		)
	}
	return nil
}

// HandleEvent processes one lifecycle event
func (s *Scheduler) HandleEvent(ctx context.Context, ev *events.Event) error {
	switch ev.Type {
	case events.EventTaskCompleted, events.EventTaskDeleted:
		if ev.TaskID == nil {
			return fmt.Errorf("event %s missing task id", ev.ID)
		}
		cancelled, err := s.notifications.Cancel(ctx, *ev.TaskID)
		if err != nil {
			return fmt.Errorf("failed to cancel notifications: %w", err)
		}
		if cancelled > 0 {
			s.logger.Info("cancelled_notifications",
				zap.String("task_id", ev.TaskID.String()),
				zap.String("reason", string(ev.Type)),
				zap.Int64("cancelled", cancelled),
			)
		}
		return nil

	case events.EventDueChanged:
		if ev.TaskID == nil {
			return fmt.Errorf("event %s missing task id", ev.ID)
		}
		// The old window's rows are stale either way: cancel and rebuild.
		// Replace, never duplicate.
		if _, err := s.notifications.Cancel(ctx, *ev.TaskID, models.NotificationDueSoon, models.NotificationOverdue); err != nil {
			return fmt.Errorf("failed to cancel stale notifications: %w", err)
		}
		if ev.NewDueAt == nil && ev.NewRemindAt == nil {
			return nil
		}
		task, err := s.tasks.GetByID(ctx, *ev.TaskID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				// Deleted between event and handling; nothing left to schedule
				return nil
			}
			return err
		}
		return s.MaterializeTask(ctx, task)

	case events.EventScanRequested:
		return s.Scan(ctx)

	default:
		return fmt.Errorf("unknown event type: %s", ev.Type)
	}
}

// Scan re-evaluates every task whose derived reminder time has entered the
// lookahead horizon. Idempotent: tasks that already have their pending rows
// create nothing new.
func (s *Scheduler) Scan(ctx context.Context) error {
	until := s.now().Add(s.cfg.LookaheadHorizon)
	tasks, err := s.tasks.ListWithDueWindows(ctx, until, s.cfg.LeadTime)
	if err != nil {
		return fmt.Errorf("failed to list due tasks: %w", err)
	}

	for _, task := range tasks {
		if err := s.MaterializeTask(ctx, task); err != nil {
			// Keep going; the next scan retries this task
			s.logger.Warn("failed_to_materialize_task",
				zap.String("task_id", task.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("scan_completed", zap.Int("tasks_considered", len(tasks)))
	return nil
}

// Run consumes lifecycle events and runs the periodic scan until ctx is
// cancelled. Repository outages fail the cycle and are retried on the next
// tick rather than crashing the process.
func (s *Scheduler) Run(ctx context.Context, prefetch int) error {
	msgChan, errChan, err := s.bus.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming events: %w", err)
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	// Initial scan so a restart catches up immediately
	if err := s.Scan(ctx); err != nil {
		s.logger.Error("initial_scan_failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("scan_failed", zap.Error(err))
			}

		case err, ok := <-errChan:
			if !ok {
				return fmt.Errorf("event bus closed")
			}
			s.logger.Error("event_bus_error", zap.Error(err))

		case msg, ok := <-msgChan:
			if !ok {
				return fmt.Errorf("event channel closed")
			}
			s.processMessage(ctx, msg)
		}
	}
}

// processMessage handles one bus message with the retry/DLQ policy
func (s *Scheduler) processMessage(ctx context.Context, msg *events.Message) {
	ev := msg.GetEvent()
	if err := s.HandleEvent(ctx, ev); err != nil {
		if ev.CanRetry() {
			ev.IncrementRetry()
			s.logger.Warn("event_handling_failed_will_retry",
				zap.String("event_id", ev.ID.String()),
				zap.String("event_type", string(ev.Type)),
				zap.Int("retry_count", ev.RetryCount),
				zap.Error(err),
			)
			if nackErr := msg.Nack(true); nackErr != nil {
				s.logger.Error("failed_to_nack_event", zap.Error(nackErr))
			}
			return
		}
		s.logger.Error("event_handling_failed_sending_to_dlq",
			zap.String("event_id", ev.ID.String()),
			zap.String("event_type", string(ev.Type)),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			s.logger.Error("failed_to_nack_event", zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		s.logger.Error("failed_to_ack_event",
			zap.String("event_id", ev.ID.String()),
			zap.Error(ackErr),
		)
	}
}
