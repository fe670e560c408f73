// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

var tokenTables = map[auth.TokenKind]string{
	auth.TokenActivation:    "activation_tokens",
	auth.TokenPasswordReset: "password_reset_tokens",
	auth.TokenRefresh:       "refresh_tokens",
}

// TokenStoreOption customizes a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithClock sets the time source used to stamp new rows.
func WithClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) { s.now = now }
}

// TokenStore implements auth.TokenStore using PostgreSQL. Token values are
// stored as SHA-256 digests.
type TokenStore struct {
	db  DB
	tx  *Transactor
	now func() time.Time
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(db DB, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{db: db, tx: NewTransactor(db), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateActivation stores a new activation token.
func (s *TokenStore) CreateActivation(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error) {
	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.insert(ctx, auth.TokenActivation, credentialID, hash, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeActivation deletes an unexpired activation token and returns its owner.
func (s *TokenStore) ConsumeActivation(ctx context.Context, token string, now time.Time) (ulid.ULID, error) {
	return s.consume(ctx, auth.TokenActivation, token, now)
}

// ReplaceReset deletes the credential's reset tokens and stores a new one.
func (s *TokenStore) ReplaceReset(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error) {
	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, err := conn(ctx, s.db).Exec(ctx, `DELETE FROM password_reset_tokens WHERE credential_id = $1`, credentialID.String())
		if err != nil {
			return oops.Code("TOKEN_DELETE_FAILED").
				With("kind", auth.TokenPasswordReset).
				With("credential_id", credentialID.String()).
				Wrap(err)
		}
		return s.insert(ctx, auth.TokenPasswordReset, credentialID, hash, ttl)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeReset deletes an unexpired reset token and returns its owner.
func (s *TokenStore) ConsumeReset(ctx context.Context, token string, now time.Time) (ulid.ULID, error) {
	return s.consume(ctx, auth.TokenPasswordReset, token, now)
}

// CreateRefresh stores the twin of a refresh bearer token.
func (s *TokenStore) CreateRefresh(ctx context.Context, credentialID ulid.ULID, token string, ttl time.Duration) error {
	return s.insert(ctx, auth.TokenRefresh, credentialID, auth.HashToken(token), ttl)
}

// FindValidRefresh returns the unexpired row matching token and owner.
func (s *TokenStore) FindValidRefresh(ctx context.Context, token string, credentialID ulid.ULID, now time.Time) (*auth.RefreshRecord, error) {
	row := conn(ctx, s.db).QueryRow(ctx, `
		SELECT id, credential_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND credential_id = $2 AND expires_at > $3
	`, auth.HashToken(token), credentialID.String(), now)

	var (
		rec          auth.RefreshRecord
		idStr, owner string
	)
	err := row.Scan(&idStr, &owner, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.TokenExpiredError()
	}
	if err != nil {
		return nil, oops.Code("TOKEN_LOOKUP_FAILED").With("kind", auth.TokenRefresh).Wrap(err)
	}
	if rec.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("TOKEN_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	if rec.CredentialID, err = ulid.Parse(owner); err != nil {
		return nil, oops.Code("TOKEN_SCAN_FAILED").With("credential_id", owner).Wrap(err)
	}
	return &rec, nil
}

// RotateRefresh deletes the old row and stores the new one atomically.
func (s *TokenStore) RotateRefresh(ctx context.Context, oldToken string, credentialID ulid.ULID, newToken string, ttl time.Duration) error {
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		result, err := conn(ctx, s.db).Exec(ctx, `
			DELETE FROM refresh_tokens
			WHERE token_hash = $1 AND credential_id = $2 AND expires_at > $3
		`, auth.HashToken(oldToken), credentialID.String(), s.now().UTC())
		if err != nil {
			return oops.Code("TOKEN_DELETE_FAILED").
				With("kind", auth.TokenRefresh).
				With("credential_id", credentialID.String()).
				Wrap(err)
		}
		if result.RowsAffected() == 0 {
			return auth.TokenExpiredError()
		}
		return s.insert(ctx, auth.TokenRefresh, credentialID, auth.HashToken(newToken), ttl)
	})
}

// RevokeRefresh deletes the matching row and reports whether one existed.
func (s *TokenStore) RevokeRefresh(ctx context.Context, token string, credentialID ulid.ULID) (bool, error) {
	result, err := conn(ctx, s.db).Exec(ctx, `
		DELETE FROM refresh_tokens WHERE token_hash = $1 AND credential_id = $2
	`, auth.HashToken(token), credentialID.String())
	if err != nil {
		return false, oops.Code("TOKEN_DELETE_FAILED").
			With("kind", auth.TokenRefresh).
			With("credential_id", credentialID.String()).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// RevokeAllRefresh deletes every refresh row of the credential.
func (s *TokenStore) RevokeAllRefresh(ctx context.Context, credentialID ulid.ULID) (int64, error) {
	result, err := conn(ctx, s.db).Exec(ctx, `DELETE FROM refresh_tokens WHERE credential_id = $1`, credentialID.String())
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_FAILED").
			With("kind", auth.TokenRefresh).
			With("credential_id", credentialID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes expired rows from every token table.
func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (auth.PurgeResult, error) {
	purged := auth.PurgeResult{}
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, kind := range []auth.TokenKind{auth.TokenActivation, auth.TokenPasswordReset, auth.TokenRefresh} {
			//nolint:gosec // G202: table name comes from a fixed map
			result, err := conn(ctx, s.db).Exec(ctx, `DELETE FROM `+tokenTables[kind]+` WHERE expires_at <= $1`, now)
			if err != nil {
				return oops.Code("TOKEN_PURGE_FAILED").With("kind", kind).Wrap(err)
			}
			purged[kind] = result.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purged, nil
}

func (s *TokenStore) insert(ctx context.Context, kind auth.TokenKind, credentialID ulid.ULID, hash string, ttl time.Duration) error {
	now := s.now().UTC()
	//nolint:gosec // G202: table name comes from a fixed map
	_, err := conn(ctx, s.db).Exec(ctx, `
		INSERT INTO `+tokenTables[kind]+` (id, credential_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ulid.Make().String(), credentialID.String(), hash, now.Add(ttl), now)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("kind", kind).
			With("credential_id", credentialID.String()).
			Wrap(err)
	}
	return nil
}

// consume deletes an unexpired row and returns its owner. Two concurrent
// consumers of the same value race on the DELETE; the loser sees no row.
func (s *TokenStore) consume(ctx context.Context, kind auth.TokenKind, token string, now time.Time) (ulid.ULID, error) {
	//nolint:gosec // G202: table name comes from a fixed map
	row := conn(ctx, s.db).QueryRow(ctx, `
		DELETE FROM `+tokenTables[kind]+`
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING credential_id
	`, auth.HashToken(token), now)

	var owner string
	err := row.Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, auth.TokenExpiredError()
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_CONSUME_FAILED").With("kind", kind).Wrap(err)
	}
	id, err := ulid.Parse(owner)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_SCAN_FAILED").With("credential_id", owner).Wrap(err)
	}
	return id, nil
}

var _ auth.TokenStore = (*TokenStore)(nil)
