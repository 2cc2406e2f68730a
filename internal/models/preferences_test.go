package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestChannelPreferences_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prefs   ChannelPreferences
		channel Channel
		want    bool
	}{
		{
			name:    "email enabled with address",
			prefs:   ChannelPreferences{EmailEnabled: true, EmailAddress: "a@b.c"},
			channel: ChannelEmail,
			want:    true,
		},
		{
			name:    "email enabled without address",
			prefs:   ChannelPreferences{EmailEnabled: true},
			channel: ChannelEmail,
			want:    false,
		},
		{
			name:    "telegram enabled with chat id",
			prefs:   ChannelPreferences{TelegramEnabled: true, TelegramChatID: "12345"},
			channel: ChannelTelegram,
			want:    true,
		},
		{
			name:    "telegram enabled without chat id",
			prefs:   ChannelPreferences{TelegramEnabled: true},
			channel: ChannelTelegram,
			want:    false,
		},
		{
			name:    "in-app needs no address",
			prefs:   ChannelPreferences{InAppEnabled: true},
			channel: ChannelInApp,
			want:    true,
		},
		{
			name:    "unknown channel",
			prefs:   ChannelPreferences{InAppEnabled: true},
			channel: Channel("sms"),
			want:    false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.prefs.Enabled(tt.channel); got != tt.want {
				t.Errorf("Enabled(%s) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestDefaultChannelPreferences(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p := DefaultChannelPreferences(userID)

	if p.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, p.UserID)
	}

	channels := p.EnabledChannels()
	if len(channels) != 1 || channels[0] != ChannelInApp {
		t.Errorf("Expected defaults to enable only in_app, got %v", channels)
	}
}

func TestChannelPreferences_Address(t *testing.T) {
	t.Parallel()

	p := ChannelPreferences{
		EmailAddress:   "a@b.c",
		TelegramChatID: "12345",
	}

	if got := p.Address(ChannelEmail); got != "a@b.c" {
		t.Errorf("Address(email) = %q, want a@b.c", got)
	}
	if got := p.Address(ChannelTelegram); got != "12345" {
		t.Errorf("Address(telegram) = %q, want 12345", got)
	}
	if got := p.Address(ChannelInApp); got != "" {
		t.Errorf("Address(in_app) = %q, want empty", got)
	}
}
