// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers auth lifecycle events out of band.
//
// Two auth.Notifier implementations are provided. Dispatcher queues events
// in process and delivers them from a background goroutine. RedisQueue
// appends them to a Redis list that a RedisWorker, possibly in another
// process, drains. Both hand events to a Sender and retry failed sends
// with exponential backoff. Neither blocks the caller on delivery.
package notify
