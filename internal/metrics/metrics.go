// Package metrics collects and exposes Prometheus metrics for the shop and
// auth-throttling subsystems.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the interface services use to report metrics.
type Recorder interface {
	RecordWebhookEvent(eventType, outcome string)
	RecordOrderTransition(status string)
	RecordReconcileCycle(scanned int, duration time.Duration)
	RecordRateLimitRejection()
	RecordLockout()
}

// Collector is the Prometheus-backed Recorder implementation.
type Collector struct {
	webhookEvents    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	reconcileCycles  prometheus.Counter
	reconcileScanned prometheus.Counter
	reconcileLatency prometheus.Histogram
	rateLimitHits    prometheus.Counter
	lockouts         prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_webhook_events_total",
			Help: "Stripe webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_order_transitions_total",
			Help: "Order status transitions applied.",
		}, []string{"status"}),
		reconcileCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solace_reconcile_cycles_total",
			Help: "Reconciliation sweeps executed.",
		}),
		reconcileScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solace_reconcile_orders_scanned_total",
			Help: "Pending orders examined by reconciliation sweeps.",
		}),
		reconcileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "solace_reconcile_duration_seconds",
			Help:    "Duration of a reconciliation sweep in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solace_auth_rate_limit_rejections_total",
			Help: "Requests rejected by the per-IP rate limit.",
		}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solace_auth_lockouts_total",
			Help: "Credential lockouts triggered by repeated failures.",
		}),
	}

	reg.MustRegister(
		c.webhookEvents,
		c.orderTransitions,
		c.reconcileCycles,
		c.reconcileScanned,
		c.reconcileLatency,
		c.rateLimitHits,
		c.lockouts,
	)
	return c
}

func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RecordOrderTransition(status string) {
	c.orderTransitions.WithLabelValues(status).Inc()
}

func (c *Collector) RecordReconcileCycle(scanned int, duration time.Duration) {
	c.reconcileCycles.Inc()
	c.reconcileScanned.Add(float64(scanned))
	c.reconcileLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordRateLimitRejection() {
	c.rateLimitHits.Inc()
}

func (c *Collector) RecordLockout() {
	c.lockouts.Inc()
}

// Nop is a Recorder that discards everything. Used where metrics are optional.
type Nop struct{}

func (Nop) RecordWebhookEvent(string, string)          {}
func (Nop) RecordOrderTransition(string)               {}
func (Nop) RecordReconcileCycle(int, time.Duration)    {}
func (Nop) RecordRateLimitRejection()                  {}
func (Nop) RecordLockout()                             {}
