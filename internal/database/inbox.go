package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard-app/taskboard/internal/models"
)

// InboxRepository handles in-app notification rows
type InboxRepository struct {
	db *DB
}

// NewInboxRepository creates a new inbox repository
func NewInboxRepository(db *DB) *InboxRepository {
	return &InboxRepository{db: db}
}

// Create inserts an in-app notification row
func (r *InboxRepository) Create(ctx context.Context, item *models.InboxItem) error {
	query := `
		INSERT INTO inbox_items (id, user_id, task_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.UserID,
		item.TaskID,
		item.Title,
		item.Body,
		time.Now(),
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inbox item: %w", err)
	}
	return nil
}

// ListByUserID returns a user's inbox items, newest first. When unreadOnly is
// set, read items are skipped.
func (r *InboxRepository) ListByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.InboxItem, error) {
	query := `
		SELECT id, user_id, task_id, title, body, read_at, created_at
		FROM inbox_items
		WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox items: %w", err)
	}
	defer rows.Close()

	var items []*models.InboxItem
	for rows.Next() {
		item := &models.InboxItem{}
		var taskID uuid.NullUUID
		var readAt sql.NullTime

		err := rows.Scan(&item.ID, &item.UserID, &taskID, &item.Title, &item.Body, &readAt, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", err)
		}
		if taskID.Valid {
			v := taskID.UUID
			item.TaskID = &v
		}
		if readAt.Valid {
			item.ReadAt = &readAt.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox items: %w", err)
	}
	return items, nil
}

// MarkRead sets the read timestamp on an inbox item owned by the user
func (r *InboxRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbox_items SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, userID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark inbox item read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inbox item update: %w", err)
	}
	if n == 0 {
		// Either missing, foreign or already read; verify existence for a clean error
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM inbox_items WHERE id = $1 AND user_id = $2)`,
			id, userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check inbox item: %w", err)
		}
		if !exists {
			return fmt.Errorf("inbox item %s: %w", id, ErrNotFound)
		}
	}
	return nil
}
