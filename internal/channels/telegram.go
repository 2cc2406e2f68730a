package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/taskboard-app/taskboard/internal/models"
)

// TelegramAdapter delivers notifications through a Telegram bot to the
// per-user chat id stored in channel preferences
type TelegramAdapter struct {
	api *tgbotapi.BotAPI
}

// NewTelegramAdapter creates a Telegram adapter from a bot token
func NewTelegramAdapter(token string) (*TelegramAdapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramAdapter{api: bot}, nil
}

// Channel returns the channel this adapter serves
func (a *TelegramAdapter) Channel() models.Channel {
	return models.ChannelTelegram
}

// Deliver posts the notification text to the user's chat
func (a *TelegramAdapter) Deliver(ctx context.Context, n *models.Notification, address string) Outcome {
	chatID, err := strconv.ParseInt(address, 10, 64)
	if err != nil {
		return Permanent(fmt.Errorf("invalid telegram chat id %q: %w", address, err))
	}

	subject, body, err := renderReminder(n)
	if err != nil {
		return Permanent(err)
	}

	if err := ctx.Err(); err != nil {
		return Retryable(err)
	}

	msg := tgbotapi.NewMessage(chatID, subject+"\n\n"+body)
	if _, err := a.api.Send(msg); err != nil {
		return classifyTelegramError(err)
	}
	return Success()
}

// classifyTelegramError separates dead chats from transient API failures.
// A chat the bot was kicked from or that never existed will never succeed.
func classifyTelegramError(err error) Outcome {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "chat not found") ||
		strings.Contains(msg, "bot was blocked") ||
		strings.Contains(msg, "user is deactivated") {
		return Permanent(fmt.Errorf("telegram delivery rejected: %w", err))
	}
	return Retryable(fmt.Errorf("telegram send failed: %w", err))
}

var _ Adapter = (*TelegramAdapter)(nil)
