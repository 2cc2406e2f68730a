package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the GTD/workflow status of a task
type TaskStatus string

const (
	TaskStatusInbox      TaskStatus = "inbox"
	TaskStatusNextAction TaskStatus = "next_action"
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusSomeday    TaskStatus = "someday"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusArchived   TaskStatus = "archived"
)

// Priority represents how urgent a task is
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// EisenhowerQuadrant classifies a task on the urgent/important matrix.
// It is orthogonal to TaskStatus.
type EisenhowerQuadrant string

const (
	QuadrantUrgentImportant    EisenhowerQuadrant = "urgent_important"
	QuadrantImportantNotUrgent EisenhowerQuadrant = "important_not_urgent"
	QuadrantUrgentNotImportant EisenhowerQuadrant = "urgent_not_important"
	QuadrantNeither            EisenhowerQuadrant = "neither"
)

// DefaultKanbanColumn is where new tasks land when no column is given
const DefaultKanbanColumn = "todo"

// Task represents a task item
type Task struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	ProjectID          *uuid.UUID          `json:"project_id,omitempty"`
	AssigneeID         *uuid.UUID          `json:"assignee_id,omitempty"`
	ContextID          *uuid.UUID          `json:"context_id,omitempty"`
	Title              string              `json:"title"`
	Description        string              `json:"description,omitempty"`
	Status             TaskStatus          `json:"status"`
	Priority           Priority            `json:"priority"`
	EisenhowerQuadrant *EisenhowerQuadrant `json:"eisenhower_quadrant,omitempty"`
	KanbanColumn       string              `json:"kanban_column"`
	KanbanOrder        int                 `json:"kanban_order"`
	IsBlocked          bool                `json:"is_blocked"`
	BlockedReason      string              `json:"blocked_reason,omitempty"`
	Tags               []string            `json:"tags"`
	DueAt              *time.Time          `json:"due_at,omitempty"`
	RemindAt           *time.Time          `json:"remind_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ValidStatus reports whether s is a recognized task status
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusInbox, TaskStatusNextAction, TaskStatusWaiting, TaskStatusSomeday,
		TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusArchived:
		return true
	default:
		return false
	}
}

// ValidQuadrant reports whether q is a recognized Eisenhower quadrant
func ValidQuadrant(q EisenhowerQuadrant) bool {
	switch q {
	case QuadrantUrgentImportant, QuadrantImportantNotUrgent, QuadrantUrgentNotImportant, QuadrantNeither:
		return true
	default:
		return false
	}
}

// IsActive reports whether the task can still generate reminders.
// Done and archived tasks never do.
func (t *Task) IsActive() bool {
	return t.Status != TaskStatusDone && t.Status != TaskStatusArchived
}
