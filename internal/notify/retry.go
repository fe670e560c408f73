// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/holomush/warden/internal/auth"
)

// RetryConfig bounds redelivery of a failed send.
type RetryConfig struct {
	MaxRetries uint64
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryConfig retries three times starting at 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

func (c RetryConfig) backoff() retry.Backoff {
	base := c.Backoff
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if c.MaxBackoff > 0 {
		b = retry.WithCappedDuration(c.MaxBackoff, b)
	}
	return retry.WithMaxRetries(c.MaxRetries, b)
}

// deliver sends event, retrying failures not marked ErrPermanent.
func deliver(ctx context.Context, sender Sender, event auth.Event, cfg RetryConfig) error {
	attempts := 0
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempts++
		if err := sender.Send(ctx, event); err != nil {
			if errors.Is(err, ErrPermanent) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	recordDelivery(event.Kind, attempts, err)
	return err
}
