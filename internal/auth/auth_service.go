// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Login verifies the password and opens a session: an access token, a
// refresh token and the refresh token's stored twin.
//
// Unknown emails and wrong passwords fail identically with
// ErrInvalidCredentials, and both cost one hash verification. An inactive
// account fails with ErrInactiveAccount whatever the password.
func (s *Service) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	ctx, done := s.begin(ctx, OpLogin)
	defer done(&err)

	cred, lookupErr := s.credentials.GetByEmail(ctx, email)
	target := s.dummyHash
	switch {
	case lookupErr == nil:
		target = cred.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, internal("LOGIN_FAILED", "get credential by email", lookupErr)
	}

	valid := s.hasher.Verify(password, target)
	if lookupErr != nil {
		return nil, oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
	}
	if !cred.Active {
		return nil, oops.Code(CodeInactiveAccount).With("credential_id", cred.ID.String()).Wrap(ErrInactiveAccount)
	}
	if !valid {
		s.logger.DebugContext(ctx, "login password mismatch", "credential_id", cred.ID.String())
		return nil, oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
	}

	s.upgradeHash(ctx, cred, password)

	now := s.now()
	pair, err = s.issuePair(cred, now)
	if err != nil {
		return nil, internal("LOGIN_FAILED", "issue tokens", err)
	}
	if err = s.tokens.CreateRefresh(ctx, cred.ID, pair.RefreshToken, s.cfg.RefreshTTL); err != nil {
		return nil, internal("LOGIN_FAILED", "persist refresh token", err)
	}
	return pair, nil
}

// RefreshSession rotates a refresh token: the presented token's row is
// deleted, a new pair is issued and the new refresh token stored, all in
// one transaction. Replaying a rotated token fails with ErrTokenExpired.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	ctx, done := s.begin(ctx, OpRefreshSession)
	defer done(&err)

	now := s.now()
	claims, err := s.codec.Decode(refreshToken, now, BearerRefresh)
	if err != nil {
		return nil, err
	}
	id, err := claims.CredentialID()
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.tokens.FindValidRefresh(ctx, refreshToken, id, now); err != nil {
			return err
		}
		cred, err := s.credentials.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if pair, err = s.issuePair(cred, now); err != nil {
			return err
		}
		return s.tokens.RotateRefresh(ctx, refreshToken, id, pair.RefreshToken, s.cfg.RefreshTTL)
	})
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			s.logger.DebugContext(ctx, "refresh token rejected", "credential_id", id.String())
		}
		return nil, internal("REFRESH_FAILED", "rotate refresh token", err)
	}
	return pair, nil
}

// Logout revokes the stored twin of a refresh token. A token with no
// stored row fails with ErrTokenNotFound.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, done := s.begin(ctx, OpLogout)
	defer done(&err)

	claims, err := s.codec.Decode(refreshToken, s.now(), BearerRefresh)
	if err != nil {
		return err
	}
	id, err := claims.CredentialID()
	if err != nil {
		return err
	}

	deleted, err := s.tokens.RevokeRefresh(ctx, refreshToken, id)
	if err != nil {
		return internal("LOGOUT_FAILED", "revoke refresh token", err)
	}
	if !deleted {
		return oops.Code(CodeTokenNotFound).With("credential_id", id.String()).Wrap(ErrTokenNotFound)
	}
	return nil
}

// VerifyAccess decodes an access token without touching storage.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	return s.codec.Decode(token, s.now(), BearerAccess)
}

// Account returns the public view of the credential with id.
func (s *Service) Account(ctx context.Context, id ulid.ULID) (*Account, error) {
	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, internal("ACCOUNT_LOOKUP_FAILED", "get credential by id", err)
	}
	return cred.Account(), nil
}

func (s *Service) issuePair(cred *Credential, now time.Time) (*TokenPair, error) {
	identity := Identity{Subject: cred.ID, Email: cred.Email, Group: cred.Group}
	access, accessExp, err := s.codec.IssueAccess(identity, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(identity, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// upgradeHash rehashes the password when the stored hash is weaker than
// the hasher's current parameters. Failures leave the old hash in place.
func (s *Service) upgradeHash(ctx context.Context, cred *Credential, password string) {
	if !s.hasher.NeedsUpgrade(cred.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.credentials.UpdatePasswordHash(ctx, cred.ID, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed", "credential_id", cred.ID.String(), "error", err)
		return
	}
	cred.PasswordHash = hash
}
