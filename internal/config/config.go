// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads and validates warden configuration.
//
// Sources are layered, later ones winning: built-in defaults, the YAML
// config file, environment variables, then command-line flags that were
// set explicitly.
package config

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/notify"
)

// Config is the complete warden configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Redis    RedisConfig    `koanf:"redis" json:"redis,omitempty"`
	Signing  SigningConfig  `koanf:"signing" json:"signing,omitempty"`
	Tokens   TokensConfig   `koanf:"tokens" json:"tokens,omitempty"`
	Password PasswordConfig `koanf:"password" json:"password,omitempty"`
	Argon2   Argon2Config   `koanf:"argon2" json:"argon2,omitempty"`
	Links    LinksConfig    `koanf:"links" json:"links,omitempty"`
	Accounts AccountsConfig `koanf:"accounts" json:"accounts,omitempty"`
	Security SecurityConfig `koanf:"security" json:"security,omitempty"`
	Notify   NotifyConfig   `koanf:"notify" json:"notify,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Purge    PurgeConfig    `koanf:"purge" json:"purge,omitempty"`
}

// DatabaseConfig locates the PostgreSQL record store.
type DatabaseConfig struct {
	URL      string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL (env DATABASE_URL)"`
	MaxConns int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=1"`
	// AutoMigrate applies pending migrations when serve starts.
	AutoMigrate bool `koanf:"auto_migrate" json:"auto_migrate" jsonschema:"description=Apply pending migrations on serve start (env WARDEN_AUTO_MIGRATE)"`
}

// RedisConfig enables the Redis notification queue when URL is set.
type RedisConfig struct {
	URL   string `koanf:"url" json:"url,omitempty" jsonschema:"description=Redis URL for the notification queue (env REDIS_URL)"`
	Queue string `koanf:"queue" json:"queue,omitempty"`
}

// SigningConfig holds the bearer token signing key.
type SigningConfig struct {
	Secret string `koanf:"secret" json:"secret,omitempty" jsonschema:"description=HMAC secret of at least 32 bytes (env WARDEN_SIGNING_SECRET)"`
	Issuer string `koanf:"issuer" json:"issuer,omitempty"`
}

// TokensConfig holds every token lifetime.
type TokensConfig struct {
	AccessTTL     Duration `koanf:"access_ttl" json:"access_ttl,omitempty"`
	RefreshTTL    Duration `koanf:"refresh_ttl" json:"refresh_ttl,omitempty"`
	ActivationTTL Duration `koanf:"activation_ttl" json:"activation_ttl,omitempty"`
	ResetTTL      Duration `koanf:"reset_ttl" json:"reset_ttl,omitempty"`
}

// PasswordConfig is the password strength policy.
type PasswordConfig struct {
	MinLength      int      `koanf:"min_length" json:"min_length,omitempty" jsonschema:"minimum=8"`
	RequireUpper   bool     `koanf:"require_upper" json:"require_upper,omitempty"`
	RequireLower   bool     `koanf:"require_lower" json:"require_lower,omitempty"`
	RequireDigit   bool     `koanf:"require_digit" json:"require_digit,omitempty"`
	RequireSpecial bool     `koanf:"require_special" json:"require_special,omitempty"`
	Denied         []string `koanf:"denied" json:"denied,omitempty" jsonschema:"description=Case-insensitive glob patterns of rejected passwords"`
}

// Argon2Config holds the password hashing cost.
type Argon2Config struct {
	Time    uint32 `koanf:"time" json:"time,omitempty" jsonschema:"minimum=1"`
	Memory  uint32 `koanf:"memory" json:"memory,omitempty" jsonschema:"minimum=8192,description=Memory in KiB"`
	Threads uint8  `koanf:"threads" json:"threads,omitempty" jsonschema:"minimum=1"`
}

// LinksConfig holds the frontend URL prefixes used in notifications.
type LinksConfig struct {
	Activation string `koanf:"activation" json:"activation,omitempty"`
	Reset      string `koanf:"reset" json:"reset,omitempty"`
	Login      string `koanf:"login" json:"login,omitempty"`
}

// AccountsConfig holds registration settings.
type AccountsConfig struct {
	DefaultGroup string `koanf:"default_group" json:"default_group,omitempty"`
}

// SecurityConfig holds optional hardening policies.
type SecurityConfig struct {
	RevokeSessionsOnReset bool `koanf:"revoke_sessions_on_reset" json:"revoke_sessions_on_reset,omitempty"`
}

// NotifyConfig sizes notification delivery.
type NotifyConfig struct {
	Buffer     int      `koanf:"buffer" json:"buffer,omitempty" jsonschema:"minimum=1"`
	Workers    int      `koanf:"workers" json:"workers,omitempty" jsonschema:"minimum=1"`
	MaxRetries uint64   `koanf:"max_retries" json:"max_retries,omitempty"`
	Backoff    Duration `koanf:"backoff" json:"backoff,omitempty"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig locates the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// PurgeConfig schedules expired token removal.
type PurgeConfig struct {
	Interval Duration `koanf:"interval" json:"interval,omitempty"`
}

// defaults are loaded before any other source.
var defaults = map[string]any{
	"database.max_conns":                10,
	"database.auto_migrate":             true,
	"redis.queue":                       notify.DefaultQueueKey,
	"signing.issuer":                    "warden",
	"tokens.access_ttl":                 "15m",
	"tokens.refresh_ttl":                "168h",
	"tokens.activation_ttl":             "24h",
	"tokens.reset_ttl":                  "1h",
	"password.min_length":               8,
	"password.require_upper":            true,
	"password.require_lower":            true,
	"password.require_digit":            true,
	"password.require_special":          true,
	"password.denied":                   []string{"*password*", "*qwerty*", "*123456*"},
	"argon2.time":                       1,
	"argon2.memory":                     64 * 1024,
	"argon2.threads":                    4,
	"links.activation":                  "http://localhost:3000",
	"links.reset":                       "http://localhost:3000",
	"links.login":                       "http://localhost:3000",
	"accounts.default_group":            auth.GroupUser,
	"security.revoke_sessions_on_reset": false,
	"notify.buffer":                     256,
	"notify.workers":                    1,
	"notify.max_retries":                3,
	"notify.backoff":                    "500ms",
	"log.format":                        "json",
	"log.level":                         "info",
	"metrics.addr":                      "127.0.0.1:9100",
	"purge.interval":                    "1h",
}

// Validate checks every section. Database and signing settings are only
// required by commands that use them; see RequireDatabase and
// RequireSigning.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Tokens),
		validation.Field(&c.Password),
		validation.Field(&c.Argon2),
		validation.Field(&c.Links),
		validation.Field(&c.Accounts),
		validation.Field(&c.Notify),
		validation.Field(&c.Log),
		validation.Field(&c.Metrics),
		validation.Field(&c.Purge),
		validation.Field(&c.Redis),
		validation.Field(&c.Signing),
	)
}

// Validate checks token lifetimes.
func (c TokensConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccessTTL, validation.Required, validation.Min(Duration(time.Second))),
		validation.Field(&c.RefreshTTL, validation.Required, validation.By(func(any) error {
			if c.RefreshTTL <= c.AccessTTL {
				return errors.New("must be longer than access_ttl")
			}
			return nil
		})),
		validation.Field(&c.ActivationTTL, validation.Required, validation.Min(Duration(time.Minute))),
		validation.Field(&c.ResetTTL, validation.Required, validation.Min(Duration(time.Minute))),
	)
}

// Validate checks the password policy.
func (c PasswordConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MinLength, validation.Required, validation.Min(8), validation.Max(128)),
	)
}

// Validate checks the argon2 cost floors.
func (c Argon2Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Time, validation.Required, validation.Min(uint32(1))),
		validation.Field(&c.Memory, validation.Required, validation.Min(uint32(8*1024))),
		validation.Field(&c.Threads, validation.Required, validation.Min(uint8(1))),
	)
}

// Validate checks that every link prefix is a URL.
func (c LinksConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Activation, validation.Required, is.URL),
		validation.Field(&c.Reset, validation.Required, is.URL),
		validation.Field(&c.Login, validation.Required, is.URL),
	)
}

// Validate checks registration settings.
func (c AccountsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DefaultGroup, validation.Required),
	)
}

// Validate checks notification sizing.
func (c NotifyConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Buffer, validation.Required, validation.Min(1)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Backoff, validation.Required),
	)
}

// Validate checks log settings.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Format, validation.Required, validation.In("json", "text")),
		validation.Field(&c.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate checks the metrics listener address.
func (c MetricsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
	)
}

// Validate checks the purge schedule.
func (c PurgeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(Duration(time.Second))),
	)
}

// Validate checks the Redis queue settings when Redis is enabled.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Queue, validation.By(func(any) error {
			if c.URL != "" && c.Queue == "" {
				return errors.New("cannot be blank when url is set")
			}
			return nil
		})),
	)
}

// Validate checks the secret length when one is set.
func (c SigningConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Secret, validation.Length(auth.MinSecretBytes, 0)),
	)
}
