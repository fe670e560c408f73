// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/auth/postgres"
	"github.com/holomush/warden/internal/config"
	"github.com/holomush/warden/internal/notify"
	"github.com/holomush/warden/internal/observability"
	"github.com/holomush/warden/internal/store"
)

// Deps contains injectable dependencies for the commands.
// Nil fields use their default implementations.
type Deps struct {
	// BackendFactory opens the record store.
	// Default: postgresBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// NotifierFactory builds the notifier handed to the service. The
	// returned func flushes and releases it.
	// Default: defaultNotifier
	NotifierFactory func(cfg *config.Config, logger *slog.Logger) (auth.Notifier, func(context.Context) error, error)

	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer
}

// Backend bundles the storage ports of one record store.
type Backend struct {
	Credentials auth.CredentialRepository
	Tokens      auth.TokenStore
	Transactor  auth.Transactor
	Ready       observability.ReadinessChecker
	Close       func()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = postgresBackend
	}
	if out.NotifierFactory == nil {
		out.NotifierFactory = defaultNotifier
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, ready, registrars...)
		}
	}
	return &out
}

func postgresBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pool, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Credentials: postgres.NewCredentialRepository(pool),
		Tokens:      postgres.NewTokenStore(pool),
		Transactor:  postgres.NewTransactor(pool),
		Ready:       store.ReadinessCheck(pool, 2*time.Second),
		Close:       pool.Close,
	}, nil
}

// defaultNotifier queues events in Redis when it is configured, otherwise
// delivers them in-process to the log.
func defaultNotifier(cfg *config.Config, logger *slog.Logger) (auth.Notifier, func(context.Context) error, error) {
	if cfg.Redis.URL != "" {
		client, err := openRedis(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		closer := func(context.Context) error {
			if err := client.Close(); err != nil {
				return oops.Code("REDIS_CLOSE_FAILED").Wrap(err)
			}
			return nil
		}
		return notify.NewRedisQueue(client, cfg.Redis.Queue), closer, nil
	}

	d := notify.NewDispatcher(cfg.DispatcherConfig(), notify.NewLogSender(logger), logger)
	return d, d.Close, nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("setting", "redis.url").Wrap(err)
	}
	return redis.NewClient(opts), nil
}

// newService wires the lifecycle service from configuration.
func newService(cfg *config.Config, backend *Backend, notifier auth.Notifier, logger *slog.Logger) (*auth.Service, error) {
	if err := cfg.RequireSigning(); err != nil {
		return nil, err
	}
	codec, err := auth.NewBearerCodec(cfg.CodecConfig())
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}
	passwords, err := auth.NewPasswordValidator(cfg.PasswordPolicy())
	if err != nil {
		return nil, err
	}
	return auth.NewService(auth.Deps{
		Credentials: backend.Credentials,
		Tokens:      backend.Tokens,
		Transactor:  backend.Transactor,
		Codec:       codec,
		Hasher:      hasher,
		Passwords:   passwords,
		Notifier:    notifier,
	}, cfg.AuthConfig(), auth.WithLogger(logger))
}
