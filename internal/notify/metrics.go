// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/warden/internal/auth"
)

// Deliveries counts finished deliveries by event kind and status
// ("delivered" or "failed").
var Deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_notifications_total",
		Help: "Total number of notification deliveries by outcome",
	},
	[]string{"kind", "status"},
)

// DeliveryAttempts observes how many sends a delivery took.
var DeliveryAttempts = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "warden_notification_attempts",
		Help:    "Number of send attempts per notification delivery",
		Buckets: []float64{1, 2, 3, 4, 6, 10},
	},
)

// Dropped counts events rejected because the in-process queue was full
// or closed.
var Dropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "warden_notifications_dropped_total",
		Help: "Total number of notifications dropped before delivery",
	},
)

// RegisterMetrics registers notify metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Deliveries)
	reg.MustRegister(DeliveryAttempts)
	reg.MustRegister(Dropped)
}

func recordDelivery(kind auth.EventKind, attempts int, err error) {
	status := "delivered"
	if err != nil {
		status = "failed"
	}
	Deliveries.WithLabelValues(string(kind), status).Inc()
	DeliveryAttempts.Observe(float64(attempts))
}
