package app

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/auth"
	"github.com/noah-isme/backend-langganan/internal/bundle"
	"github.com/noah-isme/backend-langganan/internal/catalog"
	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/config"
	"github.com/noah-isme/backend-langganan/internal/health"
	"github.com/noah-isme/backend-langganan/internal/obs"
	"github.com/noah-isme/backend-langganan/internal/payment"
	"github.com/noah-isme/backend-langganan/internal/plans"
	"github.com/noah-isme/backend-langganan/internal/ratelimit"
	"github.com/noah-isme/backend-langganan/internal/security"
	"github.com/noah-isme/backend-langganan/internal/subscription"
)

// RouterDeps is everything NewRouter mounts.
type RouterDeps struct {
	Config   *config.Config
	Services *Services
	Redis    *redis.Client
	Checker  health.Checker
	Logger   zerolog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(d RouterDeps) http.Handler {
	cfg, svc := d.Config, d.Services

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: svc.Catalog})
	plansHandler := plans.NewHandler(plans.HandlerConfig{Service: svc.Plans, Products: svc.Catalog})
	bundleHandler := bundle.NewHandler(bundle.HandlerConfig{Service: svc.Bundles})
	subHandler := subscription.NewHandler(subscription.HandlerConfig{Service: svc.Subscriptions})
	webhook := payment.Webhook{
		Providers: svc.Payments,
		Settler:   svc.Subscriptions,
		Replay:    d.Redis,
		ReplayTTL: cfg.Payment.WebhookReplayTTL,
		Logger:    d.Logger.With().Str("component", "payment_webhook").Logger(),
	}
	guard := auth.Middleware{Verifier: svc.Verifier}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdemTTL}
	limit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: d.Redis, Prefix: "langganan:rl:"},
		Key:     ratelimit.ByUserOrIP,
		Window:  cfg.Limits.Window,
		Max:     cfg.Limits.Max,
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	healthHandler := health.Handler{Checker: d.Checker}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.Tracing {
		r.Use(obs.Tracing("langganan-api"))
	}
	if cfg.Obs.Prometheus {
		metrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.HTTP.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Total-Count", "X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	if cfg.Obs.Prometheus {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.Pprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(guard.Authenticate)

		v.With(security.BodyLimit{Max: cfg.HTTP.WebhookMaxBodyBytes}.Middleware).
			Post("/webhooks/payment/{provider}", webhook.Handle)

		v.Group(func(api chi.Router) {
			api.Use(security.BodyLimit{Max: cfg.HTTP.MaxBodyBytes}.Middleware)

			api.Get("/products", catalogHandler.Products)
			api.Get("/products/{slug}", catalogHandler.ProductDetail)
			api.Get("/products/{slug}/plans", plansHandler.List)

			api.Get("/bundles", bundleHandler.List)
			api.Get("/bundles/{id}", bundleHandler.Get)
			api.With(limit.Scoped("quote")).Post("/bundles/{id}/customize", bundleHandler.Customize)
			api.With(limit.Scoped("quote")).Post("/bundles/builder/quote", bundleHandler.BuilderQuote)

			api.Group(func(user chi.Router) {
				user.Use(guard.RequireAuth)
				user.With(limit.Scoped("checkout"), idem.Middleware).Post("/subscriptions/checkout", subHandler.Checkout)
				user.With(idem.Middleware).Post("/subscriptions/{id}/confirm", subHandler.Confirm)
				user.Post("/subscriptions/{id}/cancel", subHandler.Cancel)
				user.Get("/subscriptions", subHandler.List)
				user.Get("/subscriptions/{id}", subHandler.Get)
				user.Get("/billing/history", subHandler.BillingHistory)
			})

			api.Route("/admin", func(admin chi.Router) {
				admin.Use(guard.RequireAdmin)
				admin.Post("/bundles", bundleHandler.Create)
				admin.Put("/bundles/{id}/products", bundleHandler.SetProducts)
				admin.Post("/plans/{productId}/refresh", plansHandler.Refresh)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

// protectPprof requires basic auth when user is set.
func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "credentials required", nil)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
