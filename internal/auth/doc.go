// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the credential and token lifecycle for warden.
//
// # Domain Types
//
//   - Credential - identity record created inactive by registration
//   - RefreshRecord - stored twin of a refresh bearer token
//   - Claims - signed contents of access and refresh bearer tokens
//   - Event - lifecycle notification (activation and reset)
//
// Activation and reset tokens are opaque random values. Only their SHA-256
// digests are persisted (see HashToken).
//
// # Ports
//
// Storage is reached through CredentialRepository, TokenStore and
// Transactor; delivery through Notifier. The postgres and memory
// subpackages provide storage implementations.
//
// # Services
//
// Service orchestrates Register, Activate, RequestPasswordReset,
// ResetPassword, Login, RefreshSession and Logout. Failures are reported
// with the sentinel errors in errors.go; every missing, expired or already
// consumed token is ErrTokenExpired.
package auth
