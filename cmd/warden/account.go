// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
)

// notifierFlushTimeout bounds how long a command waits for queued
// notifications after its operation finished.
const notifierFlushTimeout = 10 * time.Second

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Run credential lifecycle operations",
		Long: `Run one lifecycle operation against the record store and print the
result as JSON. Passwords not given with --password are read from the
first line of standard input.`,
	}

	cmd.AddCommand(
		newRegisterCmd(a),
		newActivateCmd(a),
		newLoginCmd(a),
		newRefreshCmd(a),
		newLogoutCmd(a),
		newResetRequestCmd(a),
		newResetCmd(a),
		newShowCmd(a),
	)
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an inactive account and send its activation link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordInput(cmd, password)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				account, err := svc.Register(ctx, email, pw)
				if err != nil {
					return err
				}
				return writeJSON(cmd, account)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	return cmd
}

func newActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate TOKEN",
		Short: "Activate an account with its activation token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				account, err := svc.Activate(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, account)
			})
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access and refresh token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := passwordInput(cmd, password)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				pair, err := svc.Login(ctx, email, pw)
				if err != nil {
					return err
				}
				return writeJSON(cmd, pair)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh REFRESH_TOKEN",
		Short: "Exchange a refresh token for a new token pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				pair, err := svc.RefreshSession(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, pair)
			})
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout REFRESH_TOKEN",
		Short: "Revoke a refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.Logout(ctx, args[0]); err != nil {
					return err
				}
				return writeJSON(cmd, map[string]string{"status": "logged_out"})
			})
		},
	}
}

func newResetRequestCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-request",
		Short: "Send a password reset link if the account exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				msg, err := svc.RequestPasswordReset(ctx, email)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]string{"message": msg})
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email") //nolint:errcheck // flag exists
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset TOKEN",
		Short: "Set a new password with a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordInput(cmd, password)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				if err := svc.ResetPassword(ctx, args[0], pw); err != nil {
					return err
				}
				return writeJSON(cmd, map[string]string{"status": "password_reset"})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print an account by credential ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ulid.ParseStrict(args[0])
			if err != nil {
				return oops.Code("INVALID_ID").With("id", args[0]).Wrap(err)
			}
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				account, err := svc.Account(ctx, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd, account)
			})
		},
	}
}

// withService opens the backend and notifier, runs fn, then flushes
// pending notifications.
func (a *app) withService(cmd *cobra.Command, fn func(context.Context, *auth.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := a.deps.BackendFactory(ctx, a.cfg)
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close()
	}

	notifier, flush, err := a.deps.NotifierFactory(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifierFlushTimeout)
		defer cancel()
		if flushErr := flush(flushCtx); flushErr != nil {
			a.logger.Warn("flushing notifications", "error", flushErr)
		}
	}()

	svc, err := newService(a.cfg, backend, notifier, a.logger)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func passwordInput(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", oops.Code("PASSWORD_REQUIRED").Wrap(err)
		}
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password is required")
	}
	return line, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
