package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/config"
	"github.com/noah-isme/backend-langganan/internal/db"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

// Infra holds the process-wide connections. Close releases them.
type Infra struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Store *db.Store
	// TaskRedis is the asynq connection option derived from REDIS_URL.
	TaskRedis asynq.RedisConnOpt
}

// OpenInfra connects to Postgres and Redis and verifies both respond.
// name is reported as the Postgres application_name.
func OpenInfra(ctx context.Context, cfg *config.Config, name string, logger zerolog.Logger) (*Infra, error) {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = name

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.Prometheus {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = client.Close()
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}

	return &Infra{Pool: pool, Redis: client, Store: db.NewStore(pool), TaskRedis: taskRedis}, nil
}

// Close releases the connections.
func (i *Infra) Close(logger zerolog.Logger) {
	if i == nil {
		return
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
	if i.Pool != nil {
		i.Pool.Close()
	}
}

// InitObservability registers metrics collectors and, when enabled, the
// tracer provider. The returned func flushes the tracer.
func InitObservability(ctx context.Context, cfg *config.Config, service string, logger zerolog.Logger) func(context.Context) {
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	if !cfg.Obs.Tracing {
		return func(context.Context) {}
	}
	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   service,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		Exporter:      cfg.Obs.TracingExporter,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		return func(context.Context) {}
	}
	return func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}
}
