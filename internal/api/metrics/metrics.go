// Package metrics defines and registers all custom Prometheus metrics for the
// aggregation service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics self-register with the default Prometheus registry through
// promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "papillon"

// ── Vendor fetch metrics ──────────────────────────────────────────────────────

// VendorFetchesTotal counts adapter calls that completed successfully.
// Labels:
//   - service: the vendor behind the call (e.g. "turboself")
//   - operation: the dispatcher operation (e.g. "balances")
var VendorFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vendor_fetches_total",
		Help:      "Total number of successful vendor adapter calls.",
	},
	[]string{"service", "operation"},
)

// VendorErrorsTotal counts adapter calls that failed.
// Labels:
//   - service: the vendor behind the call
//   - class: the vendor error class ("transient", "terminal", "data_shape")
//     or "other" for non-vendor failures
var VendorErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vendor_errors_total",
		Help:      "Total number of failed vendor adapter calls, labelled by error class.",
	},
	[]string{"service", "class"},
)

// VendorFetchDuration measures how long a single adapter call takes,
// including the session-ensure step.
// Labels:
//   - service: the vendor behind the call
//   - operation: the dispatcher operation
var VendorFetchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "vendor_fetch_duration_seconds",
		Help:      "Duration of vendor adapter calls from dispatch to mapped result.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"service", "operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionReloadsTotal counts session reload attempts.
// Labels:
//   - service: the vendor being reloaded
//   - result: "ok" or "error"
var SessionReloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_reloads_total",
		Help:      "Total number of vendor session reload attempts, labelled by result.",
	},
	[]string{"service", "result"},
)

// ── Background refresh metrics ────────────────────────────────────────────────

// RefreshDuration measures one full background refresh sweep.
// Label:
//   - result: "ok", "partial" (budget exhausted) or "error"
var RefreshDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Duration of a background refresh sweep over all stored accounts.",
		Buckets:   []float64{1, 2.5, 5, 10, 15, 30, 45, 60},
	},
	[]string{"result"},
)

// NotificationsSentTotal counts news notifications emitted by the background
// refresh.
// Label:
//   - kind: "single" (one new item, detailed) or "grouped" (count summary)
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of news notifications emitted, labelled by kind.",
	},
	[]string{"kind"},
)
