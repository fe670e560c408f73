// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Register creates an inactive credential and an activation token, then
// queues an ActivationRequested notification. The email must be unused;
// the store's uniqueness constraint decides races.
func (s *Service) Register(ctx context.Context, email, password string) (account *Account, err error) {
	ctx, done := s.begin(ctx, OpRegister)
	defer done(&err)

	if err = ValidateEmail(email); err != nil {
		return nil, err
	}
	if err = s.passwords.Validate(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internal("REGISTER_FAILED", "hash password", err)
	}
	cred, err := NewCredential(email, hash, s.cfg.DefaultGroup)
	if err != nil {
		return nil, err
	}

	var token string
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.credentials.GroupExists(ctx, cred.Group)
		if err != nil {
			return err
		}
		if !ok {
			return oops.Code("GROUP_NOT_FOUND").With("group", cred.Group).Errorf("default group not found")
		}
		if err := s.credentials.Create(ctx, cred); err != nil {
			return err
		}
		token, err = s.tokens.CreateActivation(ctx, cred.ID, s.cfg.ActivationTTL)
		return err
	})
	if err != nil {
		return nil, internal("REGISTER_FAILED", "persist credential", err)
	}

	s.notify(ctx, Event{
		Kind:         EventActivationRequested,
		CredentialID: cred.ID,
		Email:        cred.Email,
		Link:         s.cfg.Links.ActivationLink(token),
	})
	return cred.Account(), nil
}

// Activate consumes an activation token and marks its credential active.
// An unknown, expired or already used token fails with ErrTokenExpired.
func (s *Service) Activate(ctx context.Context, token string) (account *Account, err error) {
	ctx, done := s.begin(ctx, OpActivate)
	defer done(&err)

	var cred *Credential
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		id, err := s.tokens.ConsumeActivation(ctx, token, s.now())
		if err != nil {
			return err
		}
		cred, err = s.credentials.Activate(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			s.logger.DebugContext(ctx, "activation token rejected")
		}
		return nil, internal("ACTIVATE_FAILED", "consume activation token", err)
	}

	s.notify(ctx, Event{
		Kind:         EventActivationCompleted,
		CredentialID: cred.ID,
		Email:        cred.Email,
		Link:         s.cfg.Links.LoginLink(),
	})
	return cred.Account(), nil
}
