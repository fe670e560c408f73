// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventKind identifies a lifecycle notification.
type EventKind string

// Notification kinds.
const (
	EventActivationRequested EventKind = "activation_requested"
	EventActivationCompleted EventKind = "activation_completed"
	EventResetRequested      EventKind = "reset_requested"
	EventResetCompleted      EventKind = "reset_completed"
)

// Event is a lifecycle notification addressed to the credential's email.
type Event struct {
	Kind         EventKind `json:"kind"`
	CredentialID ulid.ULID `json:"credential_id"`
	Email        string    `json:"email"`
	Link         string    `json:"link"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notifier accepts events for out-of-band delivery. Notify must not block
// on delivery; the lifecycle logs and discards its errors.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Links holds the frontend URL prefixes embedded in notifications.
type Links struct {
	Activation string
	Reset      string
	Login      string
}

// ActivationLink returns the activation URL for token.
func (l Links) ActivationLink(token string) string {
	return joinLink(l.Activation, "accounts/activate", url.PathEscape(token))
}

// ResetLink returns the password reset URL for token.
func (l Links) ResetLink(token string) string {
	return joinLink(l.Reset, "accounts/password/reset", url.PathEscape(token))
}

// LoginLink returns the login URL.
func (l Links) LoginLink() string {
	return joinLink(l.Login, "accounts/login")
}

func joinLink(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
