// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

// ErrPermanent marks a send failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent delivery failure")

// Sender delivers one event, typically as an email.
type Sender interface {
	Send(ctx context.Context, event auth.Event) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, event auth.Event) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, event auth.Event) error {
	return f(ctx, event)
}

// Message is the rendered form of an event.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Render builds the message for event. Unknown kinds are permanent failures.
func Render(event auth.Event) (Message, error) {
	msg := Message{To: event.Email}
	switch event.Kind {
	case auth.EventActivationRequested:
		msg.Subject = "Activate your account"
		msg.Body = fmt.Sprintf("Welcome! Activate your account by visiting:\n\n%s\n", event.Link)
	case auth.EventActivationCompleted:
		msg.Subject = "Your account is active"
		msg.Body = fmt.Sprintf("Your account has been activated. You can now log in:\n\n%s\n", event.Link)
	case auth.EventResetRequested:
		msg.Subject = "Reset your password"
		msg.Body = fmt.Sprintf("A password reset was requested. Choose a new password here:\n\n%s\n\n"+
			"If you did not request this, ignore this message.\n", event.Link)
	case auth.EventResetCompleted:
		msg.Subject = "Your password was changed"
		msg.Body = fmt.Sprintf("Your password has been reset. Log in with your new password:\n\n%s\n", event.Link)
	default:
		return Message{}, oops.Code("NOTIFY_UNKNOWN_EVENT").With("kind", event.Kind).Wrap(ErrPermanent)
	}
	return msg, nil
}

// LogSender writes rendered messages to a logger instead of mailing them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send renders event and logs it.
func (s *LogSender) Send(ctx context.Context, event auth.Event) error {
	msg, err := Render(event)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification",
		"kind", event.Kind,
		"credential_id", event.CredentialID.String(),
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}
