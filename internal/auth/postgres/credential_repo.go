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

const credentialColumns = `id, email, password_hash, active, group_name, created_at, updated_at`

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	db DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create stores a new credential.
func (r *CredentialRepository) Create(ctx context.Context, c *auth.Credential) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		c.ID.String(),
		c.Email,
		c.PasswordHash,
		c.Active,
		c.Group,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.DuplicateEmailError(c.Email)
		}
		return oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "insert credential").
			With("credential_id", c.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a credential by ID.
func (r *CredentialRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id.String())
	c, err := scanCredential(row)
	if err != nil {
		return nil, oops.With("operation", "get credential by id").With("credential_id", id.String()).Wrap(err)
	}
	return c, nil
}

// GetByEmail retrieves a credential by exact email.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE email = $1`, email)
	c, err := scanCredential(row)
	if err != nil {
		return nil, oops.With("operation", "get credential by email").Wrap(err)
	}
	return c, nil
}

// Activate sets the active flag and returns the updated row.
func (r *CredentialRepository) Activate(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE credentials SET active = TRUE, updated_at = $2
		WHERE id = $1
		RETURNING `+credentialColumns,
		id.String(), time.Now().UTC(),
	)
	c, err := scanCredential(row)
	if err != nil {
		return nil, oops.With("operation", "activate credential").With("credential_id", id.String()).Wrap(err)
	}
	return c, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *CredentialRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, hash string) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE credentials SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), hash, time.Now().UTC())
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "update password hash").
			With("credential_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return auth.NotFoundError("credential")
	}
	return nil
}

// GroupExists reports whether the named group is defined.
func (r *CredentialRepository) GroupExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, oops.Code("GROUP_LOOKUP_FAILED").With("group", name).Wrap(err)
	}
	return exists, nil
}

func scanCredential(row pgx.Row) (*auth.Credential, error) {
	var (
		c     auth.Credential
		idStr string
	)
	err := row.Scan(&idStr, &c.Email, &c.PasswordHash, &c.Active, &c.Group, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.NotFoundError("credential")
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_SCAN_FAILED").Wrap(err)
	}
	if c.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("CREDENTIAL_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	return &c, nil
}

var _ auth.CredentialRepository = (*CredentialRepository)(nil)
