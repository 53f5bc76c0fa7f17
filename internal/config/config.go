package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrateOnStart     bool

	Auth    AuthConfig
	Payment PaymentConfig
	Vendor  VendorConfig
	Plans   PlansConfig
	Bundle  BundleConfig
	Limits  RateLimitConfig
	Worker  WorkerConfig
	Catalog CatalogConfig
	Obs     ObsConfig
	HTTP    HTTPConfig
	Lock    LockConfig
	Events  EventsConfig
	IdemTTL time.Duration
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	Prometheus       bool
	MetricsBuckets   string
	Tracing          bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	Pprof            bool
	PprofUser        string
	PprofPass        string
}

// HTTPConfig holds server hardening settings.
type HTTPConfig struct {
	MaxBodyBytes        int64
	WebhookMaxBodyBytes int64
	EnableHSTS          bool
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	ShutdownGrace       time.Duration
	DrainDelay          time.Duration
}

// LockConfig tunes the redis lock used for plan fetches and subscription transitions.
type LockConfig struct {
	RetryBackoff time.Duration
	MaxWait      time.Duration
}

// EventsConfig lists outbound subscribers for domain events.
type EventsConfig struct {
	WebhookURLs      []string
	WebhookSecret    string
	WebhookTimeout   time.Duration
	WebhookReplayTTL time.Duration
}

// AuthConfig describes how bearer tokens from the hosted auth provider are verified.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	Provider          string
	RazorpayKeyID     string
	RazorpayKeySecret string
	WebhookSecret     string
	RazorpayBaseURL   string
	OrderTTL          time.Duration
	WebhookReplayTTL  time.Duration
}

// VendorConfig controls outbound vendor plan requests.
type VendorConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Rate        string
	Endpoints   map[string]string
}

// PlansConfig controls plan normalization and caching.
type PlansConfig struct {
	CacheTTL        time.Duration
	DefaultCurrency string
	CanonicalIDs    []string
	RefreshInterval time.Duration
}

// BundleConfig holds the default customization bounds.
type BundleConfig struct {
	DefaultMin int
	DefaultMax int
}

// RateLimitConfig configures the API sliding-window limiter.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// WorkerConfig configures the asynq worker.
type WorkerConfig struct {
	Concurrency   int
	SweepInterval time.Duration
	// FallbackRefreshDelay is how long after a vendor fallback a refresh is retried.
	FallbackRefreshDelay time.Duration
}

// CatalogConfig configures the product catalog cache.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		Auth: AuthConfig{
			JWTSecret: k.String("AUTH_JWT_SECRET"),
			Issuer:    strings.TrimSpace(k.String("AUTH_JWT_ISSUER")),
			Audience:  strings.TrimSpace(k.String("AUTH_JWT_AUDIENCE")),
		},
		Payment: PaymentConfig{
			Provider:          strings.ToLower(valueOrDefault(k.String("PAYMENT_PROVIDER"), "mock")),
			RazorpayKeyID:     k.String("RAZORPAY_KEY_ID"),
			RazorpayKeySecret: k.String("RAZORPAY_KEY_SECRET"),
			WebhookSecret:     k.String("RAZORPAY_WEBHOOK_SECRET"),
			RazorpayBaseURL:   valueOrDefault(k.String("RAZORPAY_BASE_URL"), "https://api.razorpay.com"),
			OrderTTL:          parseDuration(k.String("PAYMENT_ORDER_TTL"), "30m"),
			WebhookReplayTTL:  parseDuration(k.String("PAYMENT_WEBHOOK_REPLAY_TTL"), "48h"),
		},
		Vendor: VendorConfig{
			Timeout:     parseDuration(k.String("VENDOR_TIMEOUT"), "8s"),
			MaxAttempts: parseInt(k.String("VENDOR_MAX_ATTEMPTS"), 3),
			Rate:        valueOrDefault(k.String("VENDOR_RATE"), "30-M"),
			Endpoints:   parsePairs(k.String("VENDOR_ENDPOINTS")),
		},
		Plans: PlansConfig{
			CacheTTL:        parseDuration(k.String("PLANS_CACHE_TTL"), "10m"),
			DefaultCurrency: strings.ToUpper(valueOrDefault(k.String("PLANS_DEFAULT_CURRENCY"), "INR")),
			CanonicalIDs:    splitAndTrim(k.String("PLANS_CANONICAL_IDS")),
			RefreshInterval: parseDuration(k.String("PLANS_REFRESH_INTERVAL"), "30m"),
		},
		Bundle: BundleConfig{
			DefaultMin: parseInt(k.String("BUNDLE_DEFAULT_MIN"), 2),
			DefaultMax: parseInt(k.String("BUNDLE_DEFAULT_MAX"), 6),
		},
		Limits: RateLimitConfig{
			Window: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
			Max:    parseInt(k.String("RATE_LIMIT_MAX"), 120),
		},
		Worker: WorkerConfig{
			Concurrency:          parseInt(k.String("WORKER_CONCURRENCY"), 10),
			SweepInterval:        parseDuration(k.String("WORKER_SWEEP_INTERVAL"), "5m"),
			FallbackRefreshDelay: parseDuration(k.String("WORKER_FALLBACK_REFRESH_DELAY"), "2m"),
		},
		Catalog: CatalogConfig{CacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m")},
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "langganan"),
			Prometheus:       parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			Tracing:          parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			Pprof:            parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        k.String("SECURE_PPROF_BASIC_AUTH_USER"),
			PprofPass:        k.String("SECURE_PPROF_BASIC_AUTH_PASS"),
		},
		HTTP: HTTPConfig{
			MaxBodyBytes:        int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 1<<20)),
			WebhookMaxBodyBytes: int64(parseInt(k.String("HTTP_WEBHOOK_MAX_BODY_BYTES"), 256<<10)),
			EnableHSTS:          parseBool(k.String("HTTP_ENABLE_HSTS")),
			ReadTimeout:         parseDuration(k.String("HTTP_READ_TIMEOUT"), "15s"),
			WriteTimeout:        parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "30s"),
			ShutdownGrace:       parseDuration(k.String("HTTP_SHUTDOWN_GRACE"), "20s"),
			DrainDelay:          parseDuration(k.String("HTTP_DRAIN_DELAY"), "5s"),
		},
		Lock: LockConfig{
			RetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
			MaxWait:      parseDuration(k.String("LOCK_MAX_WAIT"), "10s"),
		},
		Events: EventsConfig{
			WebhookURLs:      splitAndTrim(k.String("EVENTS_WEBHOOK_URLS")),
			WebhookSecret:    k.String("EVENTS_WEBHOOK_SECRET"),
			WebhookTimeout:   parseDuration(k.String("EVENTS_WEBHOOK_TIMEOUT"), "5s"),
			WebhookReplayTTL: parseDuration(k.String("EVENTS_WEBHOOK_REPLAY_TTL"), "24h"),
		},
		IdemTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.Bundle.DefaultMin < 0 || cfg.Bundle.DefaultMax < cfg.Bundle.DefaultMin {
		return nil, fmt.Errorf("invalid bundle bounds: min=%d max=%d", cfg.Bundle.DefaultMin, cfg.Bundle.DefaultMax)
	}
	if len(cfg.Events.WebhookURLs) > 0 && cfg.Events.WebhookSecret == "" {
		return nil, errors.New("EVENTS_WEBHOOK_SECRET is required when EVENTS_WEBHOOK_URLS is set")
	}
	switch cfg.Payment.Provider {
	case "mock":
	case "razorpay":
		if cfg.Payment.RazorpayKeyID == "" || cfg.Payment.RazorpayKeySecret == "" {
			return nil, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay provider")
		}
	default:
		return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.Payment.Provider)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parsePairs reads "a=x,b=y" into a map. Keys are lower-cased.
func parsePairs(value string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitAndTrim(value) {
		key, val, ok := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
