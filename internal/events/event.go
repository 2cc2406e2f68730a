package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of task lifecycle event
type EventType string

const (
	// EventDueChanged fires when a task's due/remind window is set, moved or cleared
	EventDueChanged EventType = "due_changed"
	// EventTaskCompleted fires when a task transitions into done
	EventTaskCompleted EventType = "task_completed"
	// EventTaskDeleted fires when a task is removed
	EventTaskDeleted EventType = "task_deleted"
	// EventScanRequested fires when an operator forces an immediate scheduler scan
	EventScanRequested EventType = "scan_requested"
)

// Event is a task lifecycle event carried from the lifecycle engine to the
// scheduler. Due-change events carry both old and new windows so stale
// notifications can be cancelled before new ones are materialized.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Type        EventType  `json:"type"`
	UserID      uuid.UUID  `json:"user_id"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	OldDueAt    *time.Time `json:"old_due_at,omitempty"`
	NewDueAt    *time.Time `json:"new_due_at,omitempty"`
	OldRemindAt *time.Time `json:"old_remind_at,omitempty"`
	NewRemindAt *time.Time `json:"new_remind_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// NewEvent creates a lifecycle event for a task
func NewEvent(eventType EventType, userID uuid.UUID, taskID *uuid.UUID) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		TaskID:     taskID,
		OccurredAt: time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// CanRetry checks if event handling can be retried
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}
