package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PlansFetchTotal counts vendor plan lookups by product and outcome (cache, vendor, fallback, error).
	PlansFetchTotal *prometheus.CounterVec
	// PlansFallbackTotal counts static fallback substitutions by product and reason.
	PlansFallbackTotal *prometheus.CounterVec
	// PlansShapeTotal counts normalized payloads by detected shape.
	PlansShapeTotal *prometheus.CounterVec
	// VendorFetchLatency records vendor plan fetch latency in milliseconds.
	VendorFetchLatency *prometheus.HistogramVec
	// CheckoutTotal counts subscription checkout outcomes.
	CheckoutTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// ConstraintViolationsTotal counts rejected bundle customizations by violation kind.
	ConstraintViolationsTotal *prometheus.CounterVec
	// JobsProcessedTotal counts background task executions.
	JobsProcessedTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by the API limiter, by scope.
	RateLimitedTotal *prometheus.CounterVec
	// EventDeliveriesTotal counts outbound event webhook deliveries.
	EventDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PlansFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_fetch_total",
			Help:      "Count of plan lookups by source.",
		}, []string{"product", "result"})
		PlansFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_fallback_total",
			Help:      "Count of static fallback plan substitutions.",
		}, []string{"product", "reason"})
		PlansShapeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_payload_shape_total",
			Help:      "Count of vendor payloads by detected shape.",
		}, []string{"shape"})
		VendorFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vendor_fetch_duration_ms",
			Help:      "Latency for vendor plan fetches in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"product", "result"})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_checkout_total",
			Help:      "Count of subscription checkout outcomes.",
		}, []string{"provider", "cycle", "result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})
		ConstraintViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundle_constraint_violations_total",
			Help:      "Count of rejected bundle customizations.",
		}, []string{"kind"})
		JobsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Count of background task executions by outcome.",
		}, []string{"task", "result"})
		RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the rate limiter.",
		}, []string{"scope"})

		EventDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_deliveries_total",
			Help:      "Count of outbound domain event deliveries by result.",
		}, []string{"result"})

		for _, vec := range []**prometheus.CounterVec{
			&PlansFetchTotal, &PlansFallbackTotal, &PlansShapeTotal, &CheckoutTotal,
			&PaymentWebhookTotal, &ConstraintViolationsTotal, &JobsProcessedTotal, &RateLimitedTotal,
			&EventDeliveriesTotal,
		} {
			*vec = register(reg, *vec)
		}
		VendorFetchLatency = register(reg, VendorFetchLatency)
	})
}

// IncCounter increments vec when it has been registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// ObserveMillis records a latency sample when the histogram has been registered.
func ObserveMillis(vec *prometheus.HistogramVec, ms float64, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Observe(ms)
}
