package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelPreferences holds a user's enabled delivery channels and the
// addresses each channel needs. Channels without an address are treated
// as disabled even when the flag is on.
type ChannelPreferences struct {
	UserID          uuid.UUID `json:"user_id"`
	EmailEnabled    bool      `json:"email_enabled"`
	EmailAddress    string    `json:"email_address,omitempty"`
	TelegramEnabled bool      `json:"telegram_enabled"`
	TelegramChatID  string    `json:"telegram_chat_id,omitempty"`
	InAppEnabled    bool      `json:"in_app_enabled"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultChannelPreferences returns the preferences applied to users who
// never saved any: in-app only, external channels opt-in.
func DefaultChannelPreferences(userID uuid.UUID) *ChannelPreferences {
	return &ChannelPreferences{
		UserID:       userID,
		InAppEnabled: true,
	}
}

// Enabled reports whether notifications may be delivered on the channel
func (p *ChannelPreferences) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled && p.EmailAddress != ""
	case ChannelTelegram:
		return p.TelegramEnabled && p.TelegramChatID != ""
	case ChannelInApp:
		return p.InAppEnabled
	default:
		return false
	}
}

// EnabledChannels returns the channels delivery is currently allowed on
func (p *ChannelPreferences) EnabledChannels() []Channel {
	var out []Channel
	for _, c := range Channels {
		if p.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// Address returns the channel-specific recipient identity, empty for in-app
func (p *ChannelPreferences) Address(c Channel) string {
	switch c {
	case ChannelEmail:
		return p.EmailAddress
	case ChannelTelegram:
		return p.TelegramChatID
	default:
		return ""
	}
}
