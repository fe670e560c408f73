// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/internal/notify"
)

// AuthConfig returns the lifecycle settings for auth.NewService.
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		ActivationTTL: c.Tokens.ActivationTTL.Std(),
		ResetTTL:      c.Tokens.ResetTTL.Std(),
		RefreshTTL:    c.Tokens.RefreshTTL.Std(),
		DefaultGroup:  c.Accounts.DefaultGroup,
		Links: auth.Links{
			Activation: c.Links.Activation,
			Reset:      c.Links.Reset,
			Login:      c.Links.Login,
		},
		RevokeSessionsOnReset: c.Security.RevokeSessionsOnReset,
	}
}

// CodecConfig returns the bearer codec settings.
func (c *Config) CodecConfig() auth.CodecConfig {
	return auth.CodecConfig{
		Secret:     []byte(c.Signing.Secret),
		Issuer:     c.Signing.Issuer,
		AccessTTL:  c.Tokens.AccessTTL.Std(),
		RefreshTTL: c.Tokens.RefreshTTL.Std(),
	}
}

// Argon2Params returns the hashing cost. Salt and key sizes are fixed.
func (c *Config) Argon2Params() auth.Argon2Params {
	p := auth.DefaultArgon2Params()
	p.Time = c.Argon2.Time
	p.Memory = c.Argon2.Memory
	p.Threads = c.Argon2.Threads
	return p
}

// PasswordPolicy returns the password strength policy.
func (c *Config) PasswordPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{
		MinLength:      c.Password.MinLength,
		RequireUpper:   c.Password.RequireUpper,
		RequireLower:   c.Password.RequireLower,
		RequireDigit:   c.Password.RequireDigit,
		RequireSpecial: c.Password.RequireSpecial,
		Denied:         append([]string(nil), c.Password.Denied...),
	}
}

// DispatcherConfig returns the in-process notification settings.
func (c *Config) DispatcherConfig() notify.DispatcherConfig {
	return notify.DispatcherConfig{
		BufferSize: c.Notify.Buffer,
		Workers:    c.Notify.Workers,
		Retry:      c.RetryConfig(),
	}
}

// RetryConfig returns the delivery retry settings.
func (c *Config) RetryConfig() notify.RetryConfig {
	r := notify.DefaultRetryConfig()
	r.MaxRetries = c.Notify.MaxRetries
	r.Backoff = c.Notify.Backoff.Std()
	return r
}
