package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-langganan/internal/auth"
	"github.com/noah-isme/backend-langganan/internal/bundle"
	"github.com/noah-isme/backend-langganan/internal/cache"
	"github.com/noah-isme/backend-langganan/internal/catalog"
	"github.com/noah-isme/backend-langganan/internal/config"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
	"github.com/noah-isme/backend-langganan/internal/jobs"
	"github.com/noah-isme/backend-langganan/internal/lock"
	"github.com/noah-isme/backend-langganan/internal/obs"
	"github.com/noah-isme/backend-langganan/internal/payment"
	"github.com/noah-isme/backend-langganan/internal/plans"
	"github.com/noah-isme/backend-langganan/internal/pricing"
	"github.com/noah-isme/backend-langganan/internal/resilience"
	"github.com/noah-isme/backend-langganan/internal/subscription"
)

// Services is the wired domain layer shared by the API and the worker.
type Services struct {
	Verifier      *auth.Verifier
	Catalog       *catalog.Service
	PlanAdapters  *plans.Registry
	Plans         *plans.Service
	Bundles       *bundle.Service
	Payments      *payment.Registry
	Subscriptions *subscription.Service
	Events        *events.Bus
	Locker        lock.Locker
}

// NewServices wires every domain service over infra. tasks receives the
// follow-up jobs scheduled by domain events; nil disables scheduling.
func NewServices(cfg *config.Config, infra *Infra, tasks jobs.Enqueuer, logger zerolog.Logger) (*Services, error) {
	queries := infra.Store.Queries()
	locker := lock.Locker{R: infra.Redis, RetryBackoff: cfg.Lock.RetryBackoff, MaxWait: cfg.Lock.MaxWait}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return nil, err
	}

	eventLogger := logger.With().Str("component", "events").Logger()
	bus := &events.Bus{
		Store:     queries,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: eventLogger}},
	}
	if len(cfg.Events.WebhookURLs) > 0 {
		bus.Notifiers = append(bus.Notifiers, events.WebhookNotifier{
			Endpoints: cfg.Events.WebhookURLs,
			Secret:    cfg.Events.WebhookSecret,
			Client: &http.Client{
				Timeout:   cfg.Events.WebhookTimeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Redis:     infra.Redis,
			ReplayTTL: cfg.Events.WebhookReplayTTL,
			Logger:    eventLogger,
		})
	}
	if tasks != nil {
		bus.Scheduler = jobs.Scheduler{
			Client:       tasks,
			ExpireAfter:  cfg.Payment.OrderTTL,
			RefreshAfter: cfg.Worker.FallbackRefreshDelay,
		}
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   cache.NewJSON(infra.Redis, cfg.Catalog.CacheTTL),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	adapters, err := NewPlanAdapters(cfg, infra.Redis, logger)
	if err != nil {
		return nil, err
	}
	meter, err := obs.NewVendorMeter()
	if err != nil {
		logger.Warn().Err(err).Msg("vendor meter unavailable")
		meter = nil
	}
	plansSvc, err := plans.NewService(plans.ServiceConfig{
		Registry: adapters,
		Normalizer: plans.NormalizerConfig{
			CanonicalIDs: cfg.Plans.CanonicalIDs,
			Currencies:   plans.DefaultCurrencyTable(cfg.Plans.DefaultCurrency),
		},
		Cache:    cache.NewJSON(infra.Redis, cfg.Plans.CacheTTL),
		Locker:   locker,
		Timeout:  cfg.Vendor.Timeout,
		Notifier: events.PlansFallbackRecorder{Bus: bus, Logger: logger},
		Meter:    meter,
		Logger:   logger.With().Str("component", "plans").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("plans: %w", err)
	}

	bundleSvc, err := bundle.NewService(bundle.ServiceConfig{
		Store: queries,
		InTx: func(ctx context.Context, fn func(bundle.Store) error) error {
			return infra.Store.InTx(ctx, func(q *dbgen.Queries) error { return fn(q) })
		},
		Products: catalogSvc,
		Cache:    cache.NewJSON(infra.Redis, cfg.Catalog.CacheTTL),
		Events:   bus,
		Logger:   logger.With().Str("component", "bundle").Logger(),
		Defaults: pricing.Constraints{MinProducts: cfg.Bundle.DefaultMin, MaxProducts: cfg.Bundle.DefaultMax},
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}

	payments, err := NewPaymentRegistry(cfg)
	if err != nil {
		return nil, err
	}

	subs, err := subscription.NewService(subscription.ServiceConfig{
		Store: queries,
		InTx: func(ctx context.Context, fn func(subscription.Store) error) error {
			return infra.Store.InTx(ctx, func(q *dbgen.Queries) error { return fn(q) })
		},
		Products:        catalogSvc,
		Plans:           plansSvc,
		Bundles:         bundleSvc,
		Payments:        payments,
		Locker:          locker,
		Events:          bus,
		Logger:          logger.With().Str("component", "subscription").Logger(),
		DefaultCurrency: cfg.Plans.DefaultCurrency,
		OrderTTL:        cfg.Payment.OrderTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription: %w", err)
	}

	return &Services{
		Verifier:      verifier,
		Catalog:       catalogSvc,
		PlanAdapters:  adapters,
		Plans:         plansSvc,
		Bundles:       bundleSvc,
		Payments:      payments,
		Subscriptions: subs,
		Events:        bus,
		Locker:        locker,
	}, nil
}

// NewPlanAdapters registers an HTTP adapter for every configured vendor
// endpoint. Products without an endpoint have no adapter and are served from
// the fallback catalog. Outbound calls share a redis-backed per-host rate
// when rdb is set.
func NewPlanAdapters(cfg *config.Config, rdb *redis.Client, logger zerolog.Logger) (*plans.Registry, error) {
	registry := plans.NewRegistry(nil)
	if len(cfg.Vendor.Endpoints) == 0 {
		return registry, nil
	}
	client := resilience.NewHTTPClient(
		&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		"vendor-plans", cfg.Vendor.MaxAttempts, cfg.Vendor.Timeout,
	)
	client.Logger = &logger
	client.Breaker = resilience.NewBreaker(resilience.BreakerConfig{
		Target:      "vendor-plans",
		MinRequests: 5,
		Window:      10,
		Logger:      logger.With().Str("component", "breaker").Logger(),
	})
	adapter := plans.HTTPAdapter{Client: client, Endpoints: cfg.Vendor.Endpoints}
	if rdb != nil && strings.TrimSpace(cfg.Vendor.Rate) != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.Vendor.Rate)
		if err != nil {
			return nil, fmt.Errorf("vendor rate %q: %w", cfg.Vendor.Rate, err)
		}
		store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "langganan:vendor-rate"})
		if err != nil {
			return nil, fmt.Errorf("vendor rate store: %w", err)
		}
		adapter.Limiter = limiter.New(store, rate)
	}
	for product := range cfg.Vendor.Endpoints {
		registry.Register(product, adapter)
	}
	return registry, nil
}

// NewPaymentRegistry builds the gateway selected by PAYMENT_PROVIDER. The
// mock gateway is always registered so local webhooks can be replayed.
func NewPaymentRegistry(cfg *config.Config) (*payment.Registry, error) {
	mockSecret := cfg.Payment.WebhookSecret
	if mockSecret == "" {
		mockSecret = "mock-secret"
	}
	mock := payment.Mock{Secret: mockSecret, OrderTTL: cfg.Payment.OrderTTL}
	switch cfg.Payment.Provider {
	case "razorpay":
		rp, err := payment.NewRazorpay(payment.RazorpayConfig{
			KeyID:         cfg.Payment.RazorpayKeyID,
			KeySecret:     cfg.Payment.RazorpayKeySecret,
			WebhookSecret: cfg.Payment.WebhookSecret,
			BaseURL:       cfg.Payment.RazorpayBaseURL,
			OrderTTL:      cfg.Payment.OrderTTL,
			HTTPClient:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			MaxAttempts:   cfg.Vendor.MaxAttempts,
			Timeout:       cfg.Vendor.Timeout,
		})
		if err != nil {
			return nil, err
		}
		if cfg.IsProduction() {
			return payment.NewRegistry(rp), nil
		}
		return payment.NewRegistry(rp, mock), nil
	default:
		return payment.NewRegistry(mock), nil
	}
}

// TaskClient opens an asynq client on infra's redis.
func TaskClient(infra *Infra) *asynq.Client {
	return asynq.NewClient(infra.TaskRedis)
}
