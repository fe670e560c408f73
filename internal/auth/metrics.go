// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lifecycle operation names used as metric labels and span names.
const (
	OpRegister             = "register"
	OpActivate             = "activate"
	OpRequestPasswordReset = "request_password_reset"
	OpResetPassword        = "reset_password"
	OpLogin                = "login"
	OpRefreshSession       = "refresh_session"
	OpLogout               = "logout"
)

// LifecycleOperations counts lifecycle operations by outcome. The status
// label is "success" or the error Kind.
var LifecycleOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_lifecycle_operations_total",
		Help: "Total number of credential lifecycle operations",
	},
	[]string{"operation", "status"},
)

// LifecycleDuration observes lifecycle operation latency.
var LifecycleDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "warden_lifecycle_duration_seconds",
		Help:    "Credential lifecycle operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// NotificationFailures counts events the notifier refused.
var NotificationFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_notification_enqueue_failures_total",
		Help: "Total number of lifecycle events the notifier failed to accept",
	},
	[]string{"kind"},
)

// RegisterMetrics registers auth metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LifecycleOperations)
	reg.MustRegister(LifecycleDuration)
	reg.MustRegister(NotificationFailures)
}

func recordOperation(op string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = string(KindOf(err))
	}
	LifecycleOperations.WithLabelValues(op, status).Inc()
	LifecycleDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
