// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Built-in groups seeded by the schema migrations.
const (
	GroupUser      = "user"
	GroupModerator = "moderator"
	GroupAdmin     = "admin"
)

const maxEmailLength = 254

// Credential is the stored identity record. It is never deleted by the
// lifecycle; activation and password reset mutate it in place.
type Credential struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Active       bool
	Group        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCredential creates an inactive credential with a fresh ID.
func NewCredential(email, passwordHash, group string) (*Credential, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if group == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_GROUP").Errorf("group cannot be empty")
	}
	now := time.Now()
	return &Credential{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Group:        group,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Account returns the public view of the credential.
func (c *Credential) Account() *Account {
	return &Account{
		ID:        c.ID,
		Email:     c.Email,
		Active:    c.Active,
		Group:     c.Group,
		CreatedAt: c.CreatedAt,
	}
}

// Account is a credential without its password hash.
type Account struct {
	ID        ulid.ULID `json:"id"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Group     string    `json:"group"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateEmail checks the address format. Emails are stored and compared
// exactly as given.
func ValidateEmail(email string) error {
	err := validation.Validate(email,
		validation.Required,
		validation.Length(3, maxEmailLength),
		is.Email,
	)
	if err != nil {
		return oops.Code(CodeInvalidEmail).With("reason", err.Error()).Wrap(ErrInvalidEmail)
	}
	return nil
}

// CredentialRepository persists credentials. Implementations pick up the
// ambient transaction from ctx when one is open.
type CredentialRepository interface {
	// Create inserts the credential. A uniqueness conflict on email is
	// reported as ErrDuplicateEmail.
	Create(ctx context.Context, c *Credential) error

	// GetByID returns ErrNotFound if no credential has the id.
	GetByID(ctx context.Context, id ulid.ULID) (*Credential, error)

	// GetByEmail returns ErrNotFound if no credential has the email.
	GetByEmail(ctx context.Context, email string) (*Credential, error)

	// Activate sets the active flag and returns the updated credential.
	Activate(ctx context.Context, id ulid.ULID) (*Credential, error)

	// UpdatePasswordHash replaces the stored hash.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, hash string) error

	// GroupExists reports whether the named group is defined.
	GroupExists(ctx context.Context, name string) (bool, error)
}
