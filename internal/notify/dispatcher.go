// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/holomush/warden/internal/auth"
)

// Errors returned by Dispatcher.Notify.
var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notification dispatcher closed")
)

// DispatcherConfig sizes a Dispatcher.
type DispatcherConfig struct {
	BufferSize int
	Workers    int
	Retry      RetryConfig
}

// DefaultDispatcherConfig returns a 256-slot queue with one worker.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BufferSize: 256,
		Workers:    1,
		Retry:      DefaultRetryConfig(),
	}
}

// Dispatcher is an in-process auth.Notifier. Notify enqueues without
// blocking; workers deliver in the background. Events that do not fit in
// the buffer are dropped and counted.
type Dispatcher struct {
	cfg    DispatcherConfig
	sender Sender
	logger *slog.Logger

	ch        chan auth.Event
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Uint64
	// stop cancels in-flight retries once Close gives up waiting.
	stop context.CancelFunc
	ctx  context.Context
}

// NewDispatcher starts a Dispatcher's workers. Call Close to stop them.
func NewDispatcher(cfg DispatcherConfig, sender Sender, logger *slog.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: logger,
		ch:     make(chan auth.Event, cfg.BufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		stop:   stop,
	}
	for range cfg.Workers {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify enqueues event. It returns ErrQueueFull or ErrClosed instead of
// blocking.
func (d *Dispatcher) Notify(_ context.Context, event auth.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop()
		return oops.Code("NOTIFY_CLOSED").With("kind", event.Kind).Wrap(ErrClosed)
	}
	select {
	case d.ch <- event:
		return nil
	default:
		d.drop()
		return oops.Code("NOTIFY_QUEUE_FULL").
			With("kind", event.Kind).
			With("buffer_size", d.cfg.BufferSize).
			Wrap(ErrQueueFull)
	}
}

// Dropped returns the number of events rejected by Notify.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered.
// If ctx ends first, pending retries are abandoned and ctx's error returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()
	})

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		d.stop()
		return nil
	case <-ctx.Done():
		d.stop()
		<-finished
		return ctx.Err()
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	Dropped.Inc()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event auth.Event) {
	if err := deliver(d.ctx, d.sender, event, d.cfg.Retry); err != nil {
		d.logger.Warn("notification delivery failed",
			"kind", event.Kind,
			"credential_id", event.CredentialID.String(),
			"error", err)
	}
}

var _ auth.Notifier = (*Dispatcher)(nil)
