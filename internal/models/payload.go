package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskReminderPayload is the payload schema for due_soon and overdue
// notifications. One declared shape per notification type keeps channel
// adapters type-safe instead of treating the payload as a dynamic bag.
type TaskReminderPayload struct {
	TaskID   uuid.UUID  `json:"task_id"`
	Title    string     `json:"title"`
	Priority Priority   `json:"priority"`
	DueAt    *time.Time `json:"due_at,omitempty"`
}

// EncodeReminderPayload serializes a reminder payload for storage
func EncodeReminderPayload(p TaskReminderPayload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reminder payload: %w", err)
	}
	return data, nil
}

// DecodeReminderPayload parses the payload of a due_soon/overdue notification
func DecodeReminderPayload(raw json.RawMessage) (*TaskReminderPayload, error) {
	var p TaskReminderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminder payload: %w", err)
	}
	return &p, nil
}
