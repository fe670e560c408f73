// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process implementation of the auth storage
// ports. Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

type tokenRow struct {
	id           ulid.ULID
	credentialID ulid.ULID
	hash         string
	expiresAt    time.Time
	createdAt    time.Time
}

type state struct {
	credentials map[ulid.ULID]auth.Credential
	emails      map[string]ulid.ULID
	groups      map[string]struct{}
	tokens      map[auth.TokenKind]map[string]tokenRow
}

func newState() *state {
	return &state{
		credentials: map[ulid.ULID]auth.Credential{},
		emails:      map[string]ulid.ULID{},
		groups:      map[string]struct{}{},
		tokens: map[auth.TokenKind]map[string]tokenRow{
			auth.TokenActivation:    {},
			auth.TokenPasswordReset: {},
			auth.TokenRefresh:       {},
		},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.credentials {
		c.credentials[k] = v
	}
	for k, v := range st.emails {
		c.emails[k] = v
	}
	for k := range st.groups {
		c.groups[k] = struct{}{}
	}
	for kind, rows := range st.tokens {
		for k, v := range rows {
			c.tokens[kind][k] = v
		}
	}
	return c
}

type txKey struct{}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp new rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements auth.CredentialRepository, auth.TokenStore and
// auth.Transactor in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// NewStore creates an empty store with the built-in groups defined.
func NewStore(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, g := range []string{auth.GroupUser, auth.GroupModerator, auth.GroupAdmin} {
		s.state.groups[g] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InTransaction runs fn with exclusive access to the store. If fn fails,
// every change it made is discarded. Nested calls join the outer one.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// with runs fn against the live state, taking the lock unless ctx is
// already inside one of this store's transactions.
func (s *Store) with(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// AddGroup defines a group.
func (s *Store) AddGroup(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.groups[name] = struct{}{}
}

// TokenCount returns the number of stored rows of kind, expired or not.
func (s *Store) TokenCount(kind auth.TokenKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.tokens[kind])
}

// CredentialCount returns the number of stored credentials.
func (s *Store) CredentialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.credentials)
}

var (
	_ auth.CredentialRepository = (*Store)(nil)
	_ auth.TokenStore           = (*Store)(nil)
	_ auth.Transactor           = (*Store)(nil)
)

func errNoGroup(name string) error {
	return oops.Code("CREDENTIAL_CREATE_FAILED").With("group", name).Errorf("group does not exist")
}
