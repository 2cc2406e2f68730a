package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channel represents a delivery channel for notifications
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelInApp    Channel = "in_app"
)

// Channels lists every recognized delivery channel
var Channels = []Channel{ChannelEmail, ChannelTelegram, ChannelInApp}

// ValidChannel reports whether c is a recognized channel
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelInApp:
		return true
	default:
		return false
	}
}

// NotificationType is the reason code for a notification
type NotificationType string

const (
	NotificationDueSoon NotificationType = "due_soon"
	NotificationOverdue NotificationType = "overdue"
)

// NotificationStatus represents the delivery state of a notification
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Notification represents one scheduled delivery to one user over one channel.
// At most one pending row exists per (task, type, channel); rescheduling
// cancels and replaces, never duplicates.
type Notification struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	TaskID       *uuid.UUID         `json:"task_id,omitempty"`
	Channel      Channel            `json:"channel"`
	Type         NotificationType   `json:"type"`
	Payload      json.RawMessage    `json:"payload"`
	ScheduledAt  time.Time          `json:"scheduled_at"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	Status       NotificationStatus `json:"status"`
	RetryCount   int                `json:"retry_count"`
	LastError    string             `json:"last_error,omitempty"`
	ClaimedUntil *time.Time         `json:"-"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// RetryPolicy controls redelivery of failed notifications.
// Delay grows as base * 2^retryCount, capped at Max.
type RetryPolicy struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

// DefaultRetryPolicy matches the dispatcher defaults: 30s base, 15m cap, 5 attempts.
var DefaultRetryPolicy = RetryPolicy{
	Base:       30 * time.Second,
	Max:        15 * time.Minute,
	MaxRetries: 5,
}

// Delay returns the backoff delay before attempt retryCount+1
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	d := p.Base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Exhausted reports whether retryCount has used up all attempts
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}
