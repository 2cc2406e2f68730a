package models

import (
	"github.com/google/uuid"
)

// User is the authenticated principal attached to a request. Account
// management lives in the auth service; this carries only what the task
// and notification layers need.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
}
