// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/warden/internal/auth"
)

// Create stores a new credential.
func (s *Store) Create(ctx context.Context, c *auth.Credential) error {
	return s.with(ctx, func(st *state) error {
		if _, taken := st.emails[c.Email]; taken {
			return auth.DuplicateEmailError(c.Email)
		}
		if _, ok := st.groups[c.Group]; !ok {
			return errNoGroup(c.Group)
		}
		st.credentials[c.ID] = *c
		st.emails[c.Email] = c.ID
		return nil
	})
}

// GetByID retrieves a credential by ID.
func (s *Store) GetByID(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	var out *auth.Credential
	err := s.with(ctx, func(st *state) error {
		c, ok := st.credentials[id]
		if !ok {
			return auth.NotFoundError("credential")
		}
		out = &c
		return nil
	})
	return out, err
}

// GetByEmail retrieves a credential by exact email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	var out *auth.Credential
	err := s.with(ctx, func(st *state) error {
		id, ok := st.emails[email]
		if !ok {
			return auth.NotFoundError("credential")
		}
		c := st.credentials[id]
		out = &c
		return nil
	})
	return out, err
}

// Activate sets the active flag and returns the updated credential.
func (s *Store) Activate(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	var out *auth.Credential
	err := s.with(ctx, func(st *state) error {
		c, ok := st.credentials[id]
		if !ok {
			return auth.NotFoundError("credential")
		}
		c.Active = true
		c.UpdatedAt = s.now()
		st.credentials[id] = c
		out = &c
		return nil
	})
	return out, err
}

// UpdatePasswordHash replaces the stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id ulid.ULID, hash string) error {
	return s.with(ctx, func(st *state) error {
		c, ok := st.credentials[id]
		if !ok {
			return auth.NotFoundError("credential")
		}
		c.PasswordHash = hash
		c.UpdatedAt = s.now()
		st.credentials[id] = c
		return nil
	})
}

// GroupExists reports whether the named group is defined.
func (s *Store) GroupExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.with(ctx, func(st *state) error {
		_, exists = st.groups[name]
		return nil
	})
	return exists, err
}

func (s *Store) stamp(ttl time.Duration) (created, expires time.Time) {
	created = s.now().UTC()
	return created, created.Add(ttl)
}
