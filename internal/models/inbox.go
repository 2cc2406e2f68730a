package models

import (
	"time"

	"github.com/google/uuid"
)

// InboxItem is an in-app notification row the UI polls for.
// The in-app channel adapter writes these; the UI marks them read.
type InboxItem struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
