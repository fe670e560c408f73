// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "context"

// OpPurgeExpired labels expired token removal.
const OpPurgeExpired = "purge_expired"

// PurgeExpired deletes every activation, reset and refresh row whose expiry
// has passed. Expired rows are already unusable; this only reclaims space.
func (s *Service) PurgeExpired(ctx context.Context) (result PurgeResult, err error) {
	ctx, done := s.begin(ctx, OpPurgeExpired)
	defer done(&err)

	result, err = s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return nil, internal("PURGE_FAILED", OpPurgeExpired, err)
	}
	if total := result.Total(); total > 0 {
		s.logger.InfoContext(ctx, "purged expired tokens",
			"activation", result[TokenActivation],
			"password_reset", result[TokenPasswordReset],
			"refresh", result[TokenRefresh],
			"total", total)
	}
	return result, nil
}
