// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("warden/auth")

// Config holds the lifecycle settings a Service is built with.
type Config struct {
	ActivationTTL time.Duration
	ResetTTL      time.Duration
	// RefreshTTL bounds the stored refresh row, which is authoritative
	// over the signed token's own expiry.
	RefreshTTL   time.Duration
	DefaultGroup string
	Links        Links
	// RevokeSessionsOnReset deletes every refresh row of the credential
	// when its password is reset.
	RevokeSessionsOnReset bool
}

// DefaultConfig returns the stock lifecycle settings.
func DefaultConfig() Config {
	return Config{
		ActivationTTL: 24 * time.Hour,
		ResetTTL:      time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		DefaultGroup:  GroupUser,
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Credentials CredentialRepository
	Tokens      TokenStore
	Transactor  Transactor
	Codec       *BearerCodec
	Hasher      PasswordHasher
	Passwords   *PasswordValidator
	Notifier    Notifier
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs the credential lifecycle: registration, activation,
// password reset, login, refresh rotation and logout.
type Service struct {
	credentials CredentialRepository
	tokens      TokenStore
	tx          Transactor
	codec       *BearerCodec
	hasher      PasswordHasher
	passwords   *PasswordValidator
	notifier    Notifier
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time

	// dummyHash is verified against when a login names an unknown email,
	// so both paths cost one hash computation.
	dummyHash string
}

// NewService validates deps and cfg and returns a Service.
func NewService(deps Deps, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case deps.Credentials == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("credential repository is required")
	case deps.Tokens == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("token store is required")
	case deps.Transactor == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("transactor is required")
	case deps.Codec == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("bearer codec is required")
	case deps.Hasher == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("password hasher is required")
	case deps.Passwords == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("password validator is required")
	case deps.Notifier == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPS").Errorf("notifier is required")
	}
	if cfg.ActivationTTL <= 0 || cfg.ResetTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("SERVICE_INVALID_CONFIG").
			With("activation_ttl", cfg.ActivationTTL).
			With("reset_ttl", cfg.ResetTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token TTLs must be positive")
	}
	if cfg.DefaultGroup == "" {
		return nil, oops.Code("SERVICE_INVALID_CONFIG").Errorf("default group is required")
	}

	s := &Service{
		credentials: deps.Credentials,
		tokens:      deps.Tokens,
		tx:          deps.Transactor,
		codec:       deps.Codec,
		hasher:      deps.Hasher,
		passwords:   deps.Passwords,
		notifier:    deps.Notifier,
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	filler := make([]byte, 16)
	if _, err := rand.Read(filler); err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	dummy, err := s.hasher.Hash(hex.EncodeToString(filler))
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").With("operation", "hash dummy password").Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// begin opens a span for op; the returned func ends it and records metrics
// for the error errp points at.
func (s *Service) begin(ctx context.Context, op string) (context.Context, func(errp *error)) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "auth."+op, trace.WithAttributes(attribute.String("auth.operation", op)))
	return ctx, func(errp *error) {
		err := *errp
		if err != nil {
			span.SetAttributes(attribute.String("auth.error_kind", string(KindOf(err))))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		recordOperation(op, started, err)
	}
}

// notify hands event to the notifier. Failures are logged and counted,
// never returned.
func (s *Service) notify(ctx context.Context, event Event) {
	event.OccurredAt = s.now()
	defer func() {
		if r := recover(); r != nil {
			NotificationFailures.WithLabelValues(string(event.Kind)).Inc()
			s.logger.ErrorContext(ctx, "notifier panicked",
				"kind", event.Kind,
				"credential_id", event.CredentialID.String(),
				"panic", r)
		}
	}()
	if err := s.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		NotificationFailures.WithLabelValues(string(event.Kind)).Inc()
		s.logger.WarnContext(ctx, "notification not accepted",
			"kind", event.Kind,
			"credential_id", event.CredentialID.String(),
			"error", err)
	}
}

// internal wraps err with code unless it already belongs to the public
// taxonomy.
func internal(code, operation string, err error) error {
	if KindOf(err) != KindInternal {
		return err
	}
	return oops.Code(code).With("operation", operation).Wrap(err)
}
