package channels

import (
	"context"
	"fmt"

	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/wneessen/go-mail"
)

// EmailConfig holds SMTP settings for the email adapter
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailAdapter delivers notifications over SMTP
type EmailAdapter struct {
	client *mail.Client
	from   string
}

// NewEmailAdapter creates an email adapter. The SMTP connection is dialed per
// delivery; the client only holds settings.
func NewEmailAdapter(cfg EmailConfig) (*EmailAdapter, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &EmailAdapter{client: client, from: cfg.From}, nil
}

// Channel returns the channel this adapter serves
func (a *EmailAdapter) Channel() models.Channel {
	return models.ChannelEmail
}

// Deliver sends the notification as a plain-text email
func (a *EmailAdapter) Deliver(ctx context.Context, n *models.Notification, address string) Outcome {
	if address == "" {
		return Permanent(fmt.Errorf("no email address for user %s", n.UserID))
	}

	subject, body, err := renderReminder(n)
	if err != nil {
		return Permanent(err)
	}

	msg := mail.NewMsg()
	if err := msg.From(a.from); err != nil {
		return Permanent(fmt.Errorf("invalid sender address: %w", err))
	}
	if err := msg.To(address); err != nil {
		// Malformed recipient address; retrying cannot help
		return Permanent(fmt.Errorf("invalid recipient address: %w", err))
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := a.client.DialAndSendWithContext(ctx, msg); err != nil {
		// Network and server failures are transient from the caller's view
		return Retryable(fmt.Errorf("smtp send failed: %w", err))
	}

	return Success()
}

var _ Adapter = (*EmailAdapter)(nil)
