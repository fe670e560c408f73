// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// OpaqueTokenBytes is the entropy of activation and reset tokens
// (32 bytes = 64 hex chars).
const OpaqueTokenBytes = 32

// TokenKind names the three token tables.
type TokenKind string

// Token kinds.
const (
	TokenActivation    TokenKind = "activation"
	TokenPasswordReset TokenKind = "password_reset"
	TokenRefresh       TokenKind = "refresh"
)

// GenerateOpaqueToken creates an unguessable token and the digest stored
// in its place.
func GenerateOpaqueToken() (token, hash string, err error) {
	b := make([]byte, OpaqueTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken returns the SHA-256 hex digest under which a token value is
// stored. Lookups hash the presented value and compare digests.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshRecord is the stored twin of a refresh bearer token.
type RefreshRecord struct {
	ID           ulid.ULID
	CredentialID ulid.ULID
	TokenHash    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// PurgeResult counts rows removed by DeleteExpired per token kind.
type PurgeResult map[TokenKind]int64

// Total returns the number of rows removed.
func (r PurgeResult) Total() int64 {
	var n int64
	for _, v := range r {
		n += v
	}
	return n
}

// TokenStore persists single-use and refresh tokens.
//
// Every lookup applies an expiry predicate; expired rows behave as absent.
// Every miss is reported as ErrTokenExpired, whatever the cause. Consuming
// operations delete the row with an affected-rows check, so of two callers
// consuming the same value exactly one succeeds. Implementations join the
// ambient transaction in ctx when one is open.
type TokenStore interface {
	// CreateActivation stores a new activation token and returns its value.
	CreateActivation(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error)

	// ConsumeActivation deletes an unexpired activation token and returns
	// its owner.
	ConsumeActivation(ctx context.Context, token string, now time.Time) (ulid.ULID, error)

	// ReplaceReset deletes every reset token of the credential and stores a
	// new one, in one transaction.
	ReplaceReset(ctx context.Context, credentialID ulid.ULID, ttl time.Duration) (string, error)

	// ConsumeReset deletes an unexpired reset token and returns its owner.
	ConsumeReset(ctx context.Context, token string, now time.Time) (ulid.ULID, error)

	// CreateRefresh stores the twin of a refresh bearer token.
	CreateRefresh(ctx context.Context, credentialID ulid.ULID, token string, ttl time.Duration) error

	// FindValidRefresh returns the unexpired row matching token and owner.
	FindValidRefresh(ctx context.Context, token string, credentialID ulid.ULID, now time.Time) (*RefreshRecord, error)

	// RotateRefresh deletes the old row and stores the new one atomically.
	// It fails with ErrTokenExpired if the old row was already gone.
	RotateRefresh(ctx context.Context, oldToken string, credentialID ulid.ULID, newToken string, ttl time.Duration) error

	// RevokeRefresh deletes the matching row and reports whether one existed.
	RevokeRefresh(ctx context.Context, token string, credentialID ulid.ULID) (bool, error)

	// RevokeAllRefresh deletes every refresh row of the credential.
	RevokeAllRefresh(ctx context.Context, credentialID ulid.ULID) (int64, error)

	// DeleteExpired removes rows whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (PurgeResult, error)
}

// Transactor runs fn inside a transaction carried by the ctx passed to fn.
// Nested calls join the outer transaction. A non-nil error from fn rolls
// everything back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
