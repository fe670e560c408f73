// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/pkg/errutil"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"Alice.Smith+tag@sub.example.org",
	}
	for _, email := range valid {
		assert.NoError(t, auth.ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"alice",
		"alice@",
		"@example.com",
		"alice example@example.com",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, email := range invalid {
		err := auth.ValidateEmail(email)
		errutil.AssertErrorIs(t, err, auth.ErrInvalidEmail, auth.CodeInvalidEmail)
	}
}

func TestNewCredential(t *testing.T) {
	cred, err := auth.NewCredential("alice@example.com", "$argon2id$hash", auth.GroupUser)
	require.NoError(t, err)

	assert.NotEqual(t, ulid.ULID{}, cred.ID)
	assert.Equal(t, "alice@example.com", cred.Email)
	assert.False(t, cred.Active, "new credentials start inactive")
	assert.Equal(t, auth.GroupUser, cred.Group)
	assert.False(t, cred.CreatedAt.IsZero())
}

func TestNewCredential_Rejects(t *testing.T) {
	_, err := auth.NewCredential("bad", "$argon2id$hash", auth.GroupUser)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidEmail)

	_, err = auth.NewCredential("alice@example.com", "", auth.GroupUser)
	errutil.AssertErrorCode(t, err, "CREDENTIAL_INVALID_HASH")

	_, err = auth.NewCredential("alice@example.com", "$argon2id$hash", "")
	errutil.AssertErrorCode(t, err, "CREDENTIAL_INVALID_GROUP")
}

func TestCredential_AccountOmitsHash(t *testing.T) {
	cred, err := auth.NewCredential("alice@example.com", "$argon2id$secret-hash", auth.GroupAdmin)
	require.NoError(t, err)

	account := cred.Account()
	assert.Equal(t, cred.ID, account.ID)
	assert.Equal(t, auth.GroupAdmin, account.Group)

	data, err := json.Marshal(account)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.Contains(t, string(data), `"email":"alice@example.com"`)
}

func TestLinks(t *testing.T) {
	links := auth.Links{
		Activation: "https://app.example.com/",
		Reset:      "https://app.example.com",
		Login:      "https://login.example.com/base/",
	}

	assert.Equal(t, "https://app.example.com/accounts/activate/abc123", links.ActivationLink("abc123"))
	assert.Equal(t, "https://app.example.com/accounts/password/reset/abc123", links.ResetLink("abc123"))
	assert.Equal(t, "https://login.example.com/base/accounts/login", links.LoginLink())
	assert.Equal(t, "https://app.example.com/accounts/activate/a%2Fb", links.ActivationLink("a/b"))
}

func TestEventJSON(t *testing.T) {
	id := ulid.Make()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(auth.Event{
		Kind:         auth.EventResetRequested,
		CredentialID: id,
		Email:        "alice@example.com",
		Link:         "https://app.example.com/accounts/password/reset/x",
		OccurredAt:   at,
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "reset_requested", raw["kind"])
	assert.Equal(t, id.String(), raw["credential_id"])
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["occurred_at"])
}

func TestNotifierFunc(t *testing.T) {
	var got auth.Event
	n := auth.NotifierFunc(func(_ context.Context, e auth.Event) error {
		got = e
		return nil
	})

	require.NoError(t, n.Notify(context.Background(), auth.Event{Kind: auth.EventActivationCompleted}))
	assert.Equal(t, auth.EventActivationCompleted, got.Kind)
}

func TestGenerateOpaqueToken(t *testing.T) {
	token, hash, err := auth.GenerateOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, token, 2*auth.OpaqueTokenBytes)
	assert.Len(t, hash, 64)
	assert.Equal(t, auth.HashToken(token), hash)
	assert.NotEqual(t, token, hash)

	other, _, err := auth.GenerateOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", auth.HashToken("abc"))
}

func TestPurgeResult_Total(t *testing.T) {
	assert.Equal(t, int64(0), auth.PurgeResult{}.Total())
	assert.Equal(t, int64(6), auth.PurgeResult{
		auth.TokenActivation:    1,
		auth.TokenPasswordReset: 2,
		auth.TokenRefresh:       3,
	}.Total())
}
