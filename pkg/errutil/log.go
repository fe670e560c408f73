// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. See LogErrorContext.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, slog.LevelError, msg, err)
}

// LogErrorContext logs err at level with its oops code and context as
// separate attributes. Plain errors are logged by message only. Extra
// key/value pairs are appended as given.
func LogErrorContext(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, extra ...any) {
	attrs := make([]any, 0, len(extra)+6)
	attrs = append(attrs, "error", errString(err))
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, "context", c)
		}
	}
	attrs = append(attrs, extra...)
	logger.Log(ctx, level, msg, attrs...)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
