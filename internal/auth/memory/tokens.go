// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/warden/internal/auth"
)

// CreateActivation stores a new activation token.
func (s *Store) CreateActivation(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error) {
	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	err = s.with(ctx, func(st *state) error {
		s.put(st, auth.TokenActivation, credentialID, hash, ttl)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeActivation deletes an unexpired activation token and returns its owner.
func (s *Store) ConsumeActivation(ctx context.Context, token string, now time.Time) (ulid.ULID, error) {
	return s.consume(ctx, auth.TokenActivation, token, now)
}

// ReplaceReset deletes the credential's reset tokens and stores a new one.
func (s *Store) ReplaceReset(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error) {
	token, hash, err := auth.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	err = s.with(ctx, func(st *state) error {
		rows := st.tokens[auth.TokenPasswordReset]
		for k, row := range rows {
			if row.credentialID == credentialID {
				delete(rows, k)
			}
		}
		s.put(st, auth.TokenPasswordReset, credentialID, hash, ttl)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeReset deletes an unexpired reset token and returns its owner.
func (s *Store) ConsumeReset(ctx context.Context, token string, now time.Time) (ulid.ULID, error) {
	return s.consume(ctx, auth.TokenPasswordReset, token, now)
}

// CreateRefresh stores the twin of a refresh bearer token.
func (s *Store) CreateRefresh(ctx context.Context, credentialID ulid.ULID, token string, ttl time.Duration) error {
	return s.with(ctx, func(st *state) error {
		s.put(st, auth.TokenRefresh, credentialID, auth.HashToken(token), ttl)
		return nil
	})
}

// FindValidRefresh returns the unexpired row matching token and owner.
func (s *Store) FindValidRefresh(ctx context.Context, token string, credentialID ulid.ULID, now time.Time) (*auth.RefreshRecord, error) {
	var out *auth.RefreshRecord
	err := s.with(ctx, func(st *state) error {
		row, ok := st.tokens[auth.TokenRefresh][auth.HashToken(token)]
		if !ok || row.credentialID != credentialID || !row.expiresAt.After(now) {
			return auth.TokenExpiredError()
		}
		out = &auth.RefreshRecord{
			ID:           row.id,
			CredentialID: row.credentialID,
			TokenHash:    row.hash,
			ExpiresAt:    row.expiresAt,
			CreatedAt:    row.createdAt,
		}
		return nil
	})
	return out, err
}

// RotateRefresh deletes the old row and stores the new one atomically.
func (s *Store) RotateRefresh(ctx context.Context, oldToken string, credentialID ulid.ULID, newToken string, ttl time.Duration) error {
	return s.with(ctx, func(st *state) error {
		rows := st.tokens[auth.TokenRefresh]
		oldHash := auth.HashToken(oldToken)
		row, ok := rows[oldHash]
		if !ok || row.credentialID != credentialID || !row.expiresAt.After(s.now()) {
			return auth.TokenExpiredError()
		}
		delete(rows, oldHash)
		s.put(st, auth.TokenRefresh, credentialID, auth.HashToken(newToken), ttl)
		return nil
	})
}

// RevokeRefresh deletes the matching row and reports whether one existed.
func (s *Store) RevokeRefresh(ctx context.Context, token string, credentialID ulid.ULID) (bool, error) {
	var deleted bool
	err := s.with(ctx, func(st *state) error {
		rows := st.tokens[auth.TokenRefresh]
		hash := auth.HashToken(token)
		if row, ok := rows[hash]; ok && row.credentialID == credentialID {
			delete(rows, hash)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// RevokeAllRefresh deletes every refresh row of the credential.
func (s *Store) RevokeAllRefresh(ctx context.Context, credentialID ulid.ULID) (int64, error) {
	var n int64
	err := s.with(ctx, func(st *state) error {
		rows := st.tokens[auth.TokenRefresh]
		for k, row := range rows {
			if row.credentialID == credentialID {
				delete(rows, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// DeleteExpired removes rows whose expiry is not after now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (auth.PurgeResult, error) {
	purged := auth.PurgeResult{}
	err := s.with(ctx, func(st *state) error {
		for kind, rows := range st.tokens {
			for k, row := range rows {
				if !row.expiresAt.After(now) {
					delete(rows, k)
					purged[kind]++
				}
			}
		}
		return nil
	})
	return purged, err
}

func (s *Store) put(st *state, kind auth.TokenKind, credentialID ulid.ULID, hash string, ttl time.Duration) {
	created, expires := s.stamp(ttl)
	st.tokens[kind][hash] = tokenRow{
		id:           ulid.Make(),
		credentialID: credentialID,
		hash:         hash,
		expiresAt:    expires,
		createdAt:    created,
	}
}

func (s *Store) consume(ctx context.Context, kind auth.TokenKind, token string, now time.Time) (ulid.ULID, error) {
	var owner ulid.ULID
	err := s.with(ctx, func(st *state) error {
		rows := st.tokens[kind]
		hash := auth.HashToken(token)
		row, ok := rows[hash]
		if !ok || !row.expiresAt.After(now) {
			return auth.TokenExpiredError()
		}
		delete(rows, hash)
		owner = row.credentialID
		return nil
	})
	return owner, err
}
