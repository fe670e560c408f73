// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/warden/internal/auth"
)

// Environment variables that override file settings.
var envKeys = map[string]string{
	"DATABASE_URL":          "database.url",
	"REDIS_URL":             "redis.url",
	"WARDEN_AUTO_MIGRATE":   "database.auto_migrate",
	"WARDEN_SIGNING_SECRET": "signing.secret",
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed, or not set on the command line, are ignored by Load.
var flagKeys = map[string]string{
	"database-url": "database.url",
	"redis-url":    "redis.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the YAML config file. Empty skips the file.
	Path string
	// Flags are consulted for the names in flagKeys. May be nil.
	Flags *pflag.FlagSet
	// LookupEnv reads environment variables. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load merges defaults, the config file, environment and flags, then
// validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
		}
		if err := ValidateDocument(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", opts.Path).Wrap(err)
		}
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for env, key := range envKeys {
		if val, ok := lookup(env); ok && val != "" {
			if err := k.Set(key, val); err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("env", env).Wrap(err)
			}
		}
	}

	if opts.Flags != nil {
		fs := opts.Flags
		provider := posflag.ProviderWithValue(fs, ".", k, func(name, value string) (string, any) {
			if f := fs.Lookup(name); f == nil || !f.Changed {
				return "", nil
			}
			return flagKeys[name], value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// RequireDatabase fails unless a database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (set DATABASE_URL or the config file)")
	}
	return nil
}

// RequireSigning fails unless a signing secret is configured.
func (c *Config) RequireSigning() error {
	if len(c.Signing.Secret) < auth.MinSecretBytes {
		return oops.Code("CONFIG_INVALID").
			Errorf("signing.secret of at least %d bytes is required (set WARDEN_SIGNING_SECRET or the config file)", auth.MinSecretBytes)
	}
	return nil
}
