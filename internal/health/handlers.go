package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-langganan/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag. The API clears it when shutdown begins
// so load balancers drain traffic before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// Checker probes the backing stores.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Probe checks a pgx pool and a Redis client.
type Probe struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// PingDB pings Postgres within timeout.
func (p Probe) PingDB(ctx context.Context, timeout time.Duration) error {
	if p.DB == nil {
		return errUnconfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.DB.Ping(ctx)
}

// PingRedis pings Redis within timeout.
func (p Probe) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errUnconfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live always reports ok while the process is serving.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports per-dependency status and 503 when any probe fails or the
// server is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	if h.Checker == nil {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}
	ctx := r.Context()
	status := map[string]string{
		"db":    probeResult(h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond))),
		"redis": probeResult(h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond))),
	}
	code := http.StatusOK
	for _, v := range status {
		if v != "ok" {
			code = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, code, status)
}

type healthError string

func (e healthError) Error() string { return string(e) }

const errUnconfigured = healthError("not configured")

func probeResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
