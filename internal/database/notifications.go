package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskboard-app/taskboard/internal/models"
)

// NotificationRepository handles notification database operations. The claim
// lease and retry policy live here so that every dispatcher instance applies
// the same rules against the shared store.
type NotificationRepository struct {
	db           *DB
	retry        models.RetryPolicy
	leaseTimeout time.Duration
}

// DefaultLeaseTimeout bounds how long a claimed row stays invisible to other
// workers before it becomes eligible for re-claim (crash protection).
const DefaultLeaseTimeout = 2 * time.Minute

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, retry models.RetryPolicy, leaseTimeout time.Duration) *NotificationRepository {
	if leaseTimeout <= 0 {
		leaseTimeout = DefaultLeaseTimeout
	}
	return &NotificationRepository{db: db, retry: retry, leaseTimeout: leaseTimeout}
}

const notificationColumns = `id, user_id, task_id, channel, type, payload,
		scheduled_at, sent_at, status, retry_count, last_error, claimed_until, created_at, updated_at`

func scanNotification(row interface{ Scan(...any) error }) (*models.Notification, error) {
	n := &models.Notification{}
	var taskID uuid.NullUUID
	var sentAt, claimedUntil sql.NullTime
	var lastError sql.NullString

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&taskID,
		&n.Channel,
		&n.Type,
		&n.Payload,
		&n.ScheduledAt,
		&sentAt,
		&n.Status,
		&n.RetryCount,
		&lastError,
		&claimedUntil,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		v := taskID.UUID
		n.TaskID = &v
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	if claimedUntil.Valid {
		n.ClaimedUntil = &claimedUntil.Time
	}
	n.LastError = lastError.String
	return n, nil
}

// Create inserts a pending notification. It returns false without error when
// an active row for the same (task, type, channel) already exists, which is
// what makes the scheduler's periodic scan idempotent.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, user_id, task_id, channel, type, payload, scheduled_at, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 0, $8, $8)
		ON CONFLICT (task_id, type, channel) WHERE status = 'pending' DO NOTHING
		RETURNING created_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		n.ID,
		n.UserID,
		n.TaskID,
		n.Channel,
		n.Type,
		[]byte(n.Payload),
		n.ScheduledAt,
		now,
	).Scan(&n.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict with an existing pending row: nothing created
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	n.Status = models.NotificationStatusPending
	return true, nil
}

// ClaimDue atomically claims up to limit pending notifications on the channel
// whose scheduled_at has passed. Claimed rows carry a lease; until it expires
// no other caller can claim them, so two concurrent dispatchers never receive
// the same row. Rows whose lease expired are claimed again (worker crashed
// mid-delivery).
func (r *NotificationRepository) ClaimDue(ctx context.Context, channel models.Channel, now time.Time, limit int) ([]*models.Notification, error) {
	query := `
		UPDATE notifications
		SET claimed_until = $3, updated_at = $2
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = 'pending'
			  AND channel = $1
			  AND scheduled_at <= $2
			  AND (claimed_until IS NULL OR claimed_until <= $2)
			ORDER BY scheduled_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	rows, err := r.db.QueryContext(ctx, query, channel, now, now.Add(r.leaseTimeout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim notifications: %w", err)
	}
	defer rows.Close()

	var claimed []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed notification: %w", err)
		}
		claimed = append(claimed, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed notifications: %w", err)
	}

	return claimed, nil
}

// MarkSent records a successful delivery. Calling it twice is a no-op on the
// second call: only a pending row transitions to sent.
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET status = 'sent', sent_at = $2, claimed_until = NULL, last_error = NULL, updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. Retryable failures below the
// retry limit return the row to pending with an exponentially backed off
// scheduled_at; everything else fails terminally.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, retryable bool, deliveryErr string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var retryCount int
	err = tx.QueryRowContext(ctx,
		`SELECT retry_count FROM notifications WHERE id = $1 AND status = 'pending' FOR UPDATE`,
		id,
	).Scan(&retryCount)
	if errors.Is(err, sql.ErrNoRows) {
		// Already sent, failed or cancelled; nothing to record
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to lock notification: %w", err)
	}

	now := time.Now()
	if retryable && !r.retry.Exhausted(retryCount+1) {
		next := now.Add(r.retry.Delay(retryCount))
		_, err = tx.ExecContext(ctx,
			`UPDATE notifications
			 SET retry_count = retry_count + 1, scheduled_at = $2, claimed_until = NULL, last_error = $3, updated_at = $4
			 WHERE id = $1`,
			id, next, deliveryErr, now,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE notifications
			 SET status = 'failed', retry_count = retry_count + 1, claimed_until = NULL, last_error = $2, updated_at = $3
			 WHERE id = $1`,
			id, deliveryErr, now,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure: %w", err)
	}
	return nil
}

// Cancel removes pending notifications for a task. With no types given every
// pending row for the task is cancelled. No-op if none exist. A row claimed
// by an in-flight delivery may still go out once (accepted late delivery).
func (r *NotificationRepository) Cancel(ctx context.Context, taskID uuid.UUID, types ...models.NotificationType) (int64, error) {
	query := `DELETE FROM notifications WHERE task_id = $1 AND status = 'pending'`
	args := []any{taskID}

	if len(types) > 0 {
		typeStrs := make([]string, len(types))
		for i, t := range types {
			typeStrs[i] = string(t)
		}
		args = append(args, pq.Array(typeStrs))
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cancelled notifications: %w", err)
	}
	return n, nil
}

// ListFailed returns terminally failed notifications for operator inspection
func (r *NotificationRepository) ListFailed(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

// ListByTask returns all notifications for a task, newest first
func (r *NotificationRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE task_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}
