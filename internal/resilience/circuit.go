package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is a breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Target labels metrics and logs, e.g. the vendor product or "razorpay".
	Target string
	// Window is how many recent outcomes are kept. The breaker opens once at
	// least MinRequests outcomes are in the window and the failure share
	// reaches FailureRatio.
	Window       int
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Breaker is a failure-ratio circuit breaker over a sliding window of call
// outcomes. While half-open it admits a single probe at a time.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	outcomes []bool
	next     int
	filled   int
	openedAt time.Time
	probing  bool
}

// NewBreaker builds a closed breaker, filling unset config with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.Window < cfg.MinRequests {
		cfg.Window = cfg.MinRequests * 2
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg, outcomes: make([]bool, cfg.Window)}
	BreakerState.WithLabelValues(cfg.Target).Set(0)
	return b
}

// Current returns the breaker state. A nil breaker is always closed.
func (b *Breaker) Current() State {
	if b == nil {
		return Closed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. An open breaker turns half-open
// once OpenFor has elapsed.
func (b *Breaker) Allow(ctx context.Context) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Report records a call outcome.
func (b *Breaker) Report(ctx context.Context, success bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	b.outcomes[b.next] = success
	b.next = (b.next + 1) % len(b.outcomes)
	if b.filled < len(b.outcomes) {
		b.filled++
	}
	if b.filled < b.cfg.MinRequests {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if !b.outcomes[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.cfg.FailureRatio {
		b.transition(ctx, Open)
	}
}

func (b *Breaker) transition(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.next, b.filled = 0, 0
	if to == Open {
		b.openedAt = b.cfg.Now()
	}
	BreakerState.WithLabelValues(b.cfg.Target).Set(float64(to))
	BreakerTransitions.WithLabelValues(b.cfg.Target, from.String(), to.String()).Inc()

	evt := b.cfg.Logger.Info().Str("target", b.cfg.Target).Str("from_state", from.String()).Str("to_state", to.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}
