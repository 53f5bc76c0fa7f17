package obs

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-langganan/internal/common"
)

// NewLogger builds the process logger. format "console" (or "text") switches to the
// human-readable writer; anything else emits JSON lines. Unknown levels fall back to info.
func NewLogger(format, level string) zerolog.Logger {
	return newLogger(os.Stdout, format, level)
}

func newLogger(w io.Writer, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// RequestLogger writes one "http_request" line per request and exposes a
// request-scoped logger to handlers through the context.
type RequestLogger struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware for structured request logs.
func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		scoped := l.Logger.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(scoped.WithContext(r.Context()))
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		evt := scoped.WithLevel(levelFor(status)).
			Str("method", r.Method).
			Str("route", Route(r)).
			Str("path", r.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", ww.BytesWritten())
		evt = withTrace(evt, r.Context())
		evt = withCaller(evt, r)
		switch {
		case status >= http.StatusInternalServerError:
			evt = evt.Bool("server_error", true)
		case status == http.StatusTooManyRequests:
			evt = evt.Bool("throttled", true)
		}
		evt.Msg("http_request")
	})
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func withTrace(evt *zerolog.Event, ctx context.Context) *zerolog.Event {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return evt
	}
	return evt.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
}

func withCaller(evt *zerolog.Event, r *http.Request) *zerolog.Event {
	ctx := r.Context()
	if user, ok := common.UserID(ctx); ok && strings.TrimSpace(user) != "" {
		evt = evt.Str("user_id", user)
	}
	if role := common.Role(ctx); role != "" {
		evt = evt.Str("role", role)
	}
	if ip := common.ClientIP(r); ip != "" {
		evt = evt.Str("client_ip", ip)
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		evt = evt.Str("user_agent", ua)
	}
	return evt
}
