// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/memory"
)

const (
	alice      = "alice@example.com"
	alicePass  = "Str0ng!Pass"
	aliceNewPw = "N3w-Secret!"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// outbox records accepted notifications.
type outbox struct {
	mu     sync.Mutex
	events []auth.Event
}

func (o *outbox) Notify(_ context.Context, e auth.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return nil
}

func (o *outbox) all() []auth.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]auth.Event(nil), o.events...)
}

func (o *outbox) last(t *testing.T, kind auth.EventKind) auth.Event {
	t.Helper()
	events := o.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i]
		}
	}
	require.Failf(t, "no event", "no %s event recorded", kind)
	return auth.Event{}
}

// token returns the opaque token at the end of the latest kind event link.
func (o *outbox) token(t *testing.T, kind auth.EventKind) string {
	t.Helper()
	link := o.last(t, kind).Link
	return link[strings.LastIndex(link, "/")+1:]
}

func testLinks() auth.Links {
	return auth.Links{
		Activation: "https://app.example.com",
		Reset:      "https://app.example.com",
		Login:      "https://app.example.com",
	}
}

func testConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.Links = testLinks()
	return cfg
}

type fixture struct {
	svc    *auth.Service
	store  *memory.Store
	clock  *fakeClock
	outbox *outbox
	codec  *auth.BearerCodec
}

type fixtureOptions struct {
	cfg      auth.Config
	hasher   auth.PasswordHasher
	notifier auth.Notifier
	tokens   auth.TokenStore
	creds    auth.CredentialRepository
	logger   *slog.Logger
}

type fixtureOption func(*fixtureOptions)

func withConfig(mutate func(*auth.Config)) fixtureOption {
	return func(o *fixtureOptions) { mutate(&o.cfg) }
}

func withHasher(h auth.PasswordHasher) fixtureOption {
	return func(o *fixtureOptions) { o.hasher = h }
}

func withNotifier(n auth.Notifier) fixtureOption {
	return func(o *fixtureOptions) { o.notifier = n }
}

func withTokenStore(ts auth.TokenStore) fixtureOption {
	return func(o *fixtureOptions) { o.tokens = ts }
}

func withCredentials(cr auth.CredentialRepository) fixtureOption {
	return func(o *fixtureOptions) { o.creds = cr }
}

func withLogger(l *slog.Logger) fixtureOption {
	return func(o *fixtureOptions) { o.logger = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	clock := newFakeClock()
	return newFixtureOn(t, memory.NewStore(memory.WithClock(clock.Now)), clock, opts...)
}

// newFixtureOn builds a service over an existing store and clock.
func newFixtureOn(t *testing.T, store *memory.Store, clock *fakeClock, opts ...fixtureOption) *fixture {
	t.Helper()
	box := &outbox{}
	o := fixtureOptions{
		cfg:      testConfig(),
		hasher:   newCheapHasher(t),
		notifier: box,
		tokens:   store,
		creds:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	codec := newTestCodec(t)
	passwords, err := auth.NewPasswordValidator(auth.DefaultPasswordPolicy())
	require.NoError(t, err)

	svc, err := auth.NewService(auth.Deps{
		Credentials: o.creds,
		Tokens:      o.tokens,
		Transactor:  store,
		Codec:       codec,
		Hasher:      o.hasher,
		Passwords:   passwords,
		Notifier:    o.notifier,
	}, o.cfg, auth.WithClock(clock.Now), auth.WithLogger(o.logger))
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, clock: clock, outbox: box, codec: codec}
}

// registerActive registers email and activates it.
func (f *fixture) registerActive(t *testing.T, email, password string) *auth.Account {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, email, password)
	require.NoError(t, err)
	account, err := f.svc.Activate(ctx, f.outbox.token(t, auth.EventActivationRequested))
	require.NoError(t, err)
	return account
}

func (f *fixture) login(t *testing.T, email, password string) *auth.TokenPair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return pair
}
