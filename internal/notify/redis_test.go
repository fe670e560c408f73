// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/warden/internal/auth"
	"github.com/holomush/warden/pkg/errutil"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisQueue_Notify(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	q := NewRedisQueue(client, "")

	event := testEvent(auth.EventActivationRequested)
	require.NoError(t, q.Notify(ctx, event))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	items, err := mr.List(DefaultQueueKey)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got auth.Event
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, event.CredentialID, got.CredentialID)
	assert.Equal(t, event.Link, got.Link)
	assert.True(t, event.OccurredAt.Equal(got.OccurredAt))
}

func TestRedisQueue_NotifyFailsWhenRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	err := NewRedisQueue(client, "q").Notify(context.Background(), testEvent(auth.EventResetRequested))
	errutil.AssertErrorCode(t, err, "NOTIFY_ENQUEUE_FAILED")
}

func newTestWorker(client *redis.Client, sender Sender) *RedisWorker {
	w := NewRedisWorker(client, "q", sender, fastRetry(), discardLogger())
	w.pollTimeout = time.Second
	return w
}

func TestRedisWorker_ProcessOne(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	rec := &recorder{}

	require.NoError(t, NewRedisQueue(client, "q").Notify(ctx, testEvent(auth.EventResetRequested)))

	took, err := newTestWorker(client, rec).ProcessOne(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, took)
	require.Len(t, rec.sent(), 1)
	assert.Equal(t, auth.EventResetRequested, rec.sent()[0].Kind)
}

func TestRedisWorker_ProcessOneEmptyQueue(t *testing.T) {
	_, client := newTestRedis(t)

	took, err := newTestWorker(client, &recorder{}).ProcessOne(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, took)
}

func TestRedisWorker_DeadLetters(t *testing.T) {
	t.Run("undecodable payload", func(t *testing.T) {
		mr, client := newTestRedis(t)
		_, err := mr.Push("q", "{not json")
		require.NoError(t, err)

		rec := &recorder{}
		took, err := newTestWorker(client, rec).ProcessOne(context.Background(), time.Second)
		require.NoError(t, err)
		assert.True(t, took)
		assert.Empty(t, rec.sent())

		dead, err := mr.List("q:dead")
		require.NoError(t, err)
		assert.Equal(t, []string{"{not json"}, dead)
	})

	t.Run("delivery failure", func(t *testing.T) {
		mr, client := newTestRedis(t)
		ctx := context.Background()
		require.NoError(t, NewRedisQueue(client, "q").Notify(ctx, testEvent(auth.EventActivationCompleted)))

		failing := SenderFunc(func(context.Context, auth.Event) error {
			return errors.Join(ErrPermanent, errors.New("rejected recipient"))
		})
		took, err := newTestWorker(client, failing).ProcessOne(ctx, time.Second)
		require.NoError(t, err)
		assert.True(t, took)

		dead, err := mr.List("q:dead")
		require.NoError(t, err)
		require.Len(t, dead, 1)
		assert.Contains(t, dead[0], `"kind":"activation_completed"`)
		assert.False(t, mr.Exists("q"))
	})
}

func TestRedisWorker_RunUntilCancelled(t *testing.T) {
	_, client := newTestRedis(t)
	delivered := make(chan auth.Event, 1)
	sender := SenderFunc(func(_ context.Context, e auth.Event) error {
		delivered <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestWorker(client, sender).Run(ctx) }()

	event := testEvent(auth.EventActivationRequested)
	require.NoError(t, NewRedisQueue(client, "q").Notify(context.Background(), event))

	select {
	case got := <-delivered:
		assert.Equal(t, event.CredentialID, got.CredentialID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
