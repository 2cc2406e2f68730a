package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard-app/taskboard/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	MoveInColumn(ctx context.Context, id uuid.UUID, column string, position int) (*models.Task, error)
	ListWithDueWindows(ctx context.Context, until time.Time, leadTime time.Duration) ([]*models.Task, error)
}

// NotificationRepositoryInterface defines the interface for notification repository operations
type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *models.Notification) (bool, error)
	ClaimDue(ctx context.Context, channel models.Channel, now time.Time, limit int) ([]*models.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryable bool, deliveryErr string) error
	Cancel(ctx context.Context, taskID uuid.UUID, types ...models.NotificationType) (int64, error)
	ListFailed(ctx context.Context, limit int) ([]*models.Notification, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Notification, error)
}

// PreferencesRepositoryInterface defines the interface for channel preference lookups
type PreferencesRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ChannelPreferences, error)
	Set(ctx context.Context, p *models.ChannelPreferences) error
}

// InboxRepositoryInterface defines the interface for in-app inbox operations
type InboxRepositoryInterface interface {
	Create(ctx context.Context, item *models.InboxItem) error
	ListByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.InboxItem, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ NotificationRepositoryInterface = (*NotificationRepository)(nil)
	_ PreferencesRepositoryInterface  = (*PreferencesRepository)(nil)
	_ InboxRepositoryInterface        = (*InboxRepository)(nil)
)
