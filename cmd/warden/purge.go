// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/holomush/warden/internal/auth"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired activation, reset and refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *auth.Service) error {
				result, err := svc.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd, purgeReport(result))
			})
		},
	}
}

func purgeReport(result auth.PurgeResult) map[string]int64 {
	return map[string]int64{
		string(auth.TokenActivation):    result[auth.TokenActivation],
		string(auth.TokenPasswordReset): result[auth.TokenPasswordReset],
		string(auth.TokenRefresh):       result[auth.TokenRefresh],
		"total":                         result.Total(),
	}
}
