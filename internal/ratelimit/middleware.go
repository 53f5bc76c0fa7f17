package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

// KeyFunc derives the bucket a request counts against. An empty key skips limiting.
type KeyFunc func(*http.Request) string

// ByClientIP buckets requests by caller address.
func ByClientIP(r *http.Request) string {
	return "ip:" + common.ClientIP(r)
}

// ByUserOrIP buckets authenticated requests by user and the rest by address.
func ByUserOrIP(r *http.Request) string {
	if id, ok := common.UserID(r.Context()); ok && id != "" {
		return "user:" + id
	}
	return ByClientIP(r)
}

// Handler enforces a limit in front of the next handler. Limiter errors fail
// open and are reported through OnError.
type Handler struct {
	Limiter Limiter
	Scope   string
	Key     KeyFunc
	Window  time.Duration
	Max     int
	OnError func(error)
}

// Middleware wraps next.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if h.Scope != "" {
			key = h.Scope + ":" + key
		}
		d, err := h.Limiter.Allow(r.Context(), key, h.Window, h.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(d.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := int(time.Until(d.ResetAt).Seconds())
			headers.Set("Retry-After", strconv.Itoa(max(retry, 1)))
			obs.IncCounter(obs.RateLimitedTotal, h.scope())
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h Handler) scope() string {
	if h.Scope == "" {
		return "default"
	}
	return h.Scope
}

// Scoped returns the middleware with its own bucket namespace.
func (h Handler) Scoped(scope string) func(http.Handler) http.Handler {
	h.Scope = scope
	return h.Middleware
}
