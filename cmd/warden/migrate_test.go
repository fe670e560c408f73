// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/store"
	"github.com/holomush/warden/pkg/errutil"
)

type fakeMigrator struct {
	upCalls   int
	downCalls int
	forced    []int
	closed    bool
	status    *store.Status
	err       error
}

func (m *fakeMigrator) Up() error                      { m.upCalls++; return m.err }
func (m *fakeMigrator) Down() error                    { m.downCalls++; return m.err }
func (m *fakeMigrator) Force(v int) error              { m.forced = append(m.forced, v); return m.err }
func (m *fakeMigrator) Status() (*store.Status, error) { return m.status, m.err }
func (m *fakeMigrator) Close() error                   { m.closed = true; return nil }

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/warden")

	path := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	var gotURL string
	cmd := newRootCmd(&Deps{
		MigratorFactory: func(url string) (Migrator, error) {
			gotURL = url
			return m, nil
		},
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"--config", path, "migrate"}, args...))
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, "postgres://localhost/warden", gotURL)
	}
	return out.String(), err
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "up")
	require.NoError(t, err)
	assert.Equal(t, 1, m.upCalls)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Migrations applied")
}

func TestMigrateDown(t *testing.T) {
	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "down")
	require.NoError(t, err)
	assert.Equal(t, 1, m.downCalls)
}

func TestMigrateStatus(t *testing.T) {
	m := &fakeMigrator{status: &store.Status{Version: 1, Applied: []uint{1}, Pending: []uint{2}}}
	out, err := runMigrate(t, m, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 1")
	assert.Contains(t, out, "Applied: 1")
	assert.Contains(t, out, "Pending: 2")
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "force", "2")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, m.forced)

	_, err = runMigrate(t, &fakeMigrator{}, "force", "abc")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigratePropagatesErrors(t *testing.T) {
	m := &fakeMigrator{err: errors.New("boom")}
	_, err := runMigrate(t, m, "up")
	require.Error(t, err)
	assert.True(t, m.closed)
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd(&Deps{
		MigratorFactory: func(string) (Migrator, error) {
			t.Fatal("migrator must not be opened without a database URL")
			return nil, nil
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestJoinVersions(t *testing.T) {
	assert.Equal(t, "none", joinVersions(nil))
	assert.Equal(t, "1, 2", joinVersions([]uint{1, 2}))
}
