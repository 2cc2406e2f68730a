package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard-app/taskboard/internal/models"
)

// PreferencesRepository handles channel preference database operations
type PreferencesRepository struct {
	db *DB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByUserID retrieves a user's channel preferences. Users who never saved
// preferences get the defaults (in-app only).
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ChannelPreferences, error) {
	p := &models.ChannelPreferences{}
	var emailAddress, telegramChatID sql.NullString

	query := `
		SELECT user_id, email_enabled, email_address, telegram_enabled, telegram_chat_id, in_app_enabled, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.EmailEnabled,
		&emailAddress,
		&p.TelegramEnabled,
		&telegramChatID,
		&p.InAppEnabled,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultChannelPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	p.EmailAddress = emailAddress.String
	p.TelegramChatID = telegramChatID.String
	return p, nil
}

// Set upserts a user's channel preferences
func (r *PreferencesRepository) Set(ctx context.Context, p *models.ChannelPreferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, email_enabled, email_address, telegram_enabled, telegram_chat_id, in_app_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			email_address = EXCLUDED.email_address,
			telegram_enabled = EXCLUDED.telegram_enabled,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			in_app_enabled = EXCLUDED.in_app_enabled,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		p.UserID,
		p.EmailEnabled,
		p.EmailAddress,
		p.TelegramEnabled,
		p.TelegramChatID,
		p.InAppEnabled,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to set preferences: %w", err)
	}
	p.UpdatedAt = now
	return nil
}
