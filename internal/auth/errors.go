// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached to lifecycle failures.
const (
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInactiveAccount    = "INACTIVE_ACCOUNT"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenMalformed     = "TOKEN_MALFORMED"
	CodeTokenTypeMismatch  = "TOKEN_TYPE_MISMATCH"
	CodeTokenNotFound      = "TOKEN_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
)

// Sentinel errors for the lifecycle error taxonomy. Returned errors wrap
// these, so callers match with errors.Is.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not satisfy policy")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is not active")
	ErrTokenExpired       = errors.New("token is invalid or has expired")
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenTypeMismatch  = errors.New("token type mismatch")
	ErrTokenNotFound      = errors.New("refresh token not found or already logged out")
	ErrNotFound           = errors.New("not found")
)

// Kind is the public category of a lifecycle error.
type Kind string

// Error kinds.
const (
	KindDuplicateEmail     Kind = "duplicate_email"
	KindInvalidEmail       Kind = "invalid_email"
	KindWeakPassword       Kind = "weak_password"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInactiveAccount    Kind = "inactive_account"
	KindTokenExpired       Kind = "token_expired"
	KindTokenMalformed     Kind = "token_malformed"
	KindTokenTypeMismatch  Kind = "token_type_mismatch"
	KindTokenNotFound      Kind = "token_not_found"
	KindNotFound           Kind = "not_found"
	KindInternal           Kind = "internal"
)

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrDuplicateEmail, KindDuplicateEmail},
	{ErrInvalidEmail, KindInvalidEmail},
	{ErrWeakPassword, KindWeakPassword},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrInactiveAccount, KindInactiveAccount},
	{ErrTokenExpired, KindTokenExpired},
	{ErrTokenMalformed, KindTokenMalformed},
	{ErrTokenTypeMismatch, KindTokenTypeMismatch},
	{ErrTokenNotFound, KindTokenNotFound},
	{ErrNotFound, KindNotFound},
}

// KindOf classifies err. Errors outside the taxonomy are KindInternal;
// a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// TokenExpiredError reports a missing, expired or consumed token. The
// reason is kept out of the error so all three look identical.
func TokenExpiredError() error {
	return oops.Code(CodeTokenExpired).Wrap(ErrTokenExpired)
}

// NotFoundError reports a missing record of the named entity.
func NotFoundError(entity string) error {
	return oops.Code(CodeNotFound).With("entity", entity).Wrap(ErrNotFound)
}

// DuplicateEmailError reports a uniqueness conflict on the email column.
func DuplicateEmailError(email string) error {
	return oops.Code(CodeDuplicateEmail).With("email", email).Wrap(ErrDuplicateEmail)
}
