// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
)

// ResetRequestMessage is returned by RequestPasswordReset whether or not
// the email belongs to an account.
const ResetRequestMessage = "If a user with that email exists, a reset link has been sent."

// RequestPasswordReset issues a reset token for the account with email,
// replacing any earlier one, and queues a ResetRequested notification.
// For an unknown email nothing is written and the same message is returned.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (message string, err error) {
	ctx, done := s.begin(ctx, OpRequestPasswordReset)
	defer done(&err)

	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown email")
			return ResetRequestMessage, nil
		}
		return "", internal("RESET_REQUEST_FAILED", "get credential by email", err)
	}

	token, err := s.tokens.ReplaceReset(ctx, cred.ID, s.cfg.ResetTTL)
	if err != nil {
		return "", internal("RESET_REQUEST_FAILED", "replace reset token", err)
	}

	s.notify(ctx, Event{
		Kind:         EventResetRequested,
		CredentialID: cred.ID,
		Email:        cred.Email,
		Link:         s.cfg.Links.ResetLink(token),
	})
	return ResetRequestMessage, nil
}

// ResetPassword consumes a reset token and replaces the credential's
// password hash. Refresh rows are revoked in the same transaction when
// Config.RevokeSessionsOnReset is set.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, done := s.begin(ctx, OpResetPassword)
	defer done(&err)

	if err = s.passwords.Validate(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("RESET_FAILED", "hash password", err)
	}

	var (
		cred    *Credential
		revoked int64
	)
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		id, err := s.tokens.ConsumeReset(ctx, token, s.now())
		if err != nil {
			return err
		}
		if cred, err = s.credentials.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.credentials.UpdatePasswordHash(ctx, id, hash); err != nil {
			return err
		}
		if s.cfg.RevokeSessionsOnReset {
			revoked, err = s.tokens.RevokeAllRefresh(ctx, id)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			s.logger.DebugContext(ctx, "password reset token rejected")
		}
		return internal("RESET_FAILED", "consume reset token", err)
	}

	if revoked > 0 {
		s.logger.InfoContext(ctx, "revoked sessions after password reset",
			"credential_id", cred.ID.String(),
			"sessions", revoked)
	}
	s.notify(ctx, Event{
		Kind:         EventResetCompleted,
		CredentialID: cred.ID,
		Email:        cred.Email,
		Link:         s.cfg.Links.LoginLink(),
	})
	return nil
}
