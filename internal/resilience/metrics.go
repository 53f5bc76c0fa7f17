package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerState reports 0 closed, 1 open, 2 half-open per upstream.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "langganan",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	// BreakerTransitions counts state changes per upstream.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langganan",
		Name:      "breaker_transition_total",
		Help:      "Circuit breaker state transitions per upstream.",
	}, []string{"target", "from", "to"})
	// UpstreamRetries counts retried upstream attempts.
	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langganan",
		Name:      "upstream_retry_total",
		Help:      "Retried upstream HTTP attempts per target.",
	}, []string{"target"})
)
