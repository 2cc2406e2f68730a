package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskboard-app/taskboard/internal/models"
)

// OutcomeKind classifies a delivery attempt
type OutcomeKind int

const (
	// OutcomeSuccess means the notification reached the channel
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRetryable means a transient failure (network, timeout, provider 5xx)
	OutcomeRetryable
	// OutcomePermanent means retrying cannot help (bad address, channel rejects recipient)
	OutcomePermanent
)

// Outcome is the result of one delivery attempt
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Success returns a successful outcome
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Retryable wraps err as a transient delivery failure
func Retryable(err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Err: err}
}

// Permanent wraps err as a terminal delivery failure
func Permanent(err error) Outcome {
	return Outcome{Kind: OutcomePermanent, Err: err}
}

// Adapter delivers one notification to one recipient. Adapters are stateless;
// every attempt carries everything it needs. ctx carries the dispatcher's
// bounded delivery timeout, and hitting it counts as retryable.
type Adapter interface {
	// Channel returns the channel this adapter serves
	Channel() models.Channel

	// Deliver sends the notification to the recipient address.
	// address is channel-specific (email address, telegram chat id) and empty
	// for channels that resolve the recipient themselves (in-app).
	Deliver(ctx context.Context, n *models.Notification, address string) Outcome
}

// ErrUnknownPayload is returned when a notification carries an unrecognized type
var ErrUnknownPayload = errors.New("unknown notification type")

// renderReminder turns a reminder payload into subject and body text shared
// by all adapters
func renderReminder(n *models.Notification) (subject, body string, err error) {
	switch n.Type {
	case models.NotificationDueSoon, models.NotificationOverdue:
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnknownPayload, n.Type)
	}

	p, err := models.DecodeReminderPayload(n.Payload)
	if err != nil {
		return "", "", err
	}

	if n.Type == models.NotificationOverdue {
		subject = fmt.Sprintf("Task overdue: %s", p.Title)
		body = fmt.Sprintf("Your task %q is overdue.", p.Title)
	} else {
		subject = fmt.Sprintf("Task due soon: %s", p.Title)
		body = fmt.Sprintf("Your task %q is coming up.", p.Title)
	}
	if p.DueAt != nil {
		body += fmt.Sprintf(" Due %s.", p.DueAt.Format("Mon, 02 Jan 2006 15:04 MST"))
	}
	if p.Priority == models.PriorityHigh || p.Priority == models.PriorityCritical {
		body += fmt.Sprintf(" Priority: %s.", p.Priority)
	}
	return subject, body, nil
}
