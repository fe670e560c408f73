// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

// DefaultQueueKey is the Redis list events are appended to.
const DefaultQueueKey = "warden:notifications"

// deadLetterSuffix names the list holding events whose delivery failed.
const deadLetterSuffix = ":dead"

// RedisQueue is an auth.Notifier that appends events to a Redis list.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

// NewRedisQueue creates a queue on key. An empty key uses DefaultQueueKey.
func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

// Notify appends event to the list.
func (q *RedisQueue) Notify(ctx context.Context, event auth.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return oops.Code("NOTIFY_ENCODE_FAILED").With("kind", event.Kind).Wrap(err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return oops.Code("NOTIFY_ENQUEUE_FAILED").With("kind", event.Kind).With("key", q.key).Wrap(err)
	}
	return nil
}

// Len returns the number of queued events.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, oops.Code("NOTIFY_QUEUE_LEN_FAILED").With("key", q.key).Wrap(err)
	}
	return n, nil
}

// RedisWorker drains a RedisQueue into a Sender. Events that still fail
// after retries are moved to the dead-letter list "<key>:dead".
type RedisWorker struct {
	client      redis.Cmdable
	key         string
	sender      Sender
	retry       RetryConfig
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewRedisWorker creates a worker for the list at key.
func NewRedisWorker(client redis.Cmdable, key string, sender Sender, retry RetryConfig, logger *slog.Logger) *RedisWorker {
	if key == "" {
		key = DefaultQueueKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisWorker{
		client:      client,
		key:         key,
		sender:      sender,
		retry:       retry,
		pollTimeout: 5 * time.Second,
		logger:      logger,
	}
}

// Run processes events until ctx is cancelled.
func (w *RedisWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "notification worker started", "key", w.key)
	for {
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "notification worker stopped", "key", w.key)
			return nil
		}
		if _, err := w.ProcessOne(ctx, w.pollTimeout); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.WarnContext(ctx, "notification worker error", "key", w.key, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne waits up to timeout for one event and delivers it. It reports
// whether an event was taken off the queue.
func (w *RedisWorker) ProcessOne(ctx context.Context, timeout time.Duration) (bool, error) {
	res, err := w.client.BLPop(ctx, timeout, w.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("NOTIFY_DEQUEUE_FAILED").With("key", w.key).Wrap(err)
	}
	if len(res) != 2 {
		return false, oops.Code("NOTIFY_DEQUEUE_FAILED").With("key", w.key).Errorf("unexpected BLPOP reply of %d elements", len(res))
	}
	payload := res[1]

	var event auth.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		w.logger.WarnContext(ctx, "discarding undecodable notification", "key", w.key, "error", err)
		return true, w.deadLetter(ctx, payload)
	}

	if err := deliver(ctx, w.sender, event, w.retry); err != nil {
		w.logger.WarnContext(ctx, "notification delivery failed",
			"kind", event.Kind,
			"credential_id", event.CredentialID.String(),
			"error", err)
		return true, w.deadLetter(ctx, payload)
	}
	return true, nil
}

func (w *RedisWorker) deadLetter(ctx context.Context, payload string) error {
	if err := w.client.RPush(context.WithoutCancel(ctx), w.key+deadLetterSuffix, payload).Err(); err != nil {
		return oops.Code("NOTIFY_DEAD_LETTER_FAILED").With("key", w.key+deadLetterSuffix).Wrap(err)
	}
	return nil
}

var _ auth.Notifier = (*RedisQueue)(nil)
