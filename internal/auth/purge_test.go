// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
)

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Alice: activated, one session, one pending reset.
	f.registerActive(t, alice, alicePass)
	f.login(t, alice, alicePass)
	_, err := f.svc.RequestPasswordReset(ctx, alice)
	require.NoError(t, err)
	// Bob: pending activation.
	_, err = f.svc.Register(ctx, "bob@example.com", alicePass)
	require.NoError(t, err)

	purged, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged.Total())

	f.clock.Advance(2 * time.Hour)
	purged, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged[auth.TokenPasswordReset])
	assert.Equal(t, int64(1), purged.Total())
	assert.Equal(t, 1, f.store.TokenCount(auth.TokenActivation))

	f.clock.Advance(8 * 24 * time.Hour)
	purged, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged[auth.TokenActivation])
	assert.Equal(t, int64(1), purged[auth.TokenRefresh])

	assert.Equal(t, 0, f.store.TokenCount(auth.TokenActivation))
	assert.Equal(t, 0, f.store.TokenCount(auth.TokenPasswordReset))
	assert.Equal(t, 0, f.store.TokenCount(auth.TokenRefresh))
	assert.Equal(t, 2, f.store.CredentialCount(), "credentials are never purged")
}
