// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSecretBytes is the shortest HMAC signing secret accepted.
const MinSecretBytes = 32

// BearerType discriminates access tokens from refresh tokens.
type BearerType string

// Bearer token types.
const (
	BearerAccess  BearerType = "access"
	BearerRefresh BearerType = "refresh"
)

// Identity is the subject a bearer token is issued for.
type Identity struct {
	Subject ulid.ULID
	Email   string
	Group   string
}

// Claims are the signed contents of a bearer token.
type Claims struct {
	Email string     `json:"email"`
	Group string     `json:"group"`
	Type  BearerType `json:"token_type"`
	jwt.RegisteredClaims
}

// CredentialID parses the subject claim.
func (c *Claims) CredentialID() (ulid.ULID, error) {
	id, err := ulid.ParseStrict(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeTokenMalformed).With("reason", "subject").Wrap(ErrTokenMalformed)
	}
	return id, nil
}

// CodecConfig configures a BearerCodec.
type CodecConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// BearerCodec issues and verifies HS256-signed access and refresh tokens.
// It holds no state beyond its configuration.
type BearerCodec struct {
	cfg CodecConfig
}

// NewBearerCodec validates cfg and returns a codec.
func NewBearerCodec(cfg CodecConfig) (*BearerCodec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, oops.Code("CODEC_INVALID_CONFIG").Errorf("signing secret must be at least %d bytes", MinSecretBytes)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("CODEC_INVALID_CONFIG").
			With("access_ttl", cfg.AccessTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token TTLs must be positive")
	}
	return &BearerCodec{cfg: cfg}, nil
}

// IssueAccess signs a short-lived access token for id.
func (c *BearerCodec) IssueAccess(id Identity, now time.Time) (string, time.Time, error) {
	return c.issue(id, BearerAccess, now, c.cfg.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for id.
func (c *BearerCodec) IssueRefresh(id Identity, now time.Time) (string, time.Time, error) {
	return c.issue(id, BearerRefresh, now, c.cfg.RefreshTTL)
}

func (c *BearerCodec) issue(id Identity, typ BearerType, now time.Time, ttl time.Duration) (string, time.Time, error) {
	claims := &Claims{
		Email: id.Email,
		Group: id.Group,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject.String(),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Unique per token so two refresh tokens minted in the same
			// second never share a stored digest.
			ID: uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("type", typ).Wrap(err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies the signature and expiry of token at now and checks its
// type. It never consults storage.
func (c *BearerCodec) Decode(token string, now time.Time, expected BearerType) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, TokenExpiredError()
	case err != nil:
		return nil, oops.Code(CodeTokenMalformed).With("reason", err.Error()).Wrap(ErrTokenMalformed)
	}

	if claims.Type != expected {
		return nil, oops.Code(CodeTokenTypeMismatch).
			With("expected", expected).
			With("actual", claims.Type).
			Wrap(ErrTokenTypeMismatch)
	}
	return claims, nil
}
