package channels

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/models"
)

// InAppAdapter delivers notifications by writing an inbox row the UI polls
type InAppAdapter struct {
	inbox database.InboxRepositoryInterface
}

// NewInAppAdapter creates an in-app adapter over the inbox repository
func NewInAppAdapter(inbox database.InboxRepositoryInterface) *InAppAdapter {
	return &InAppAdapter{inbox: inbox}
}

// Channel returns the channel this adapter serves
func (a *InAppAdapter) Channel() models.Channel {
	return models.ChannelInApp
}

// Deliver writes the notification into the user's in-app inbox. The address
// argument is unused; the inbox row is keyed by the notification's user.
func (a *InAppAdapter) Deliver(ctx context.Context, n *models.Notification, _ string) Outcome {
	subject, body, err := renderReminder(n)
	if err != nil {
		return Permanent(err)
	}

	item := &models.InboxItem{
		ID:     uuid.New(),
		UserID: n.UserID,
		TaskID: n.TaskID,
		Title:  subject,
		Body:   body,
	}
	if err := a.inbox.Create(ctx, item); err != nil {
		// The inbox lives in the same store as the notification row; failures
		// here are repository outages, always worth a retry
		return Retryable(err)
	}
	return Success()
}

var _ Adapter = (*InAppAdapter)(nil)
