package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/app"
	"github.com/noah-isme/backend-langganan/internal/config"
	"github.com/noah-isme/backend-langganan/internal/jobs"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushTracer := app.InitObservability(ctx, cfg, "langganan-worker", logger)
	defer flushTracer(context.Background())

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	infra, err := app.OpenInfra(startCtx, cfg, "langganan-worker", logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise infrastructure")
	}
	defer infra.Close(logger)

	tasks := app.TaskClient(infra)
	defer func() { _ = tasks.Close() }()

	services, err := app.NewServices(cfg, infra, tasks, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	mux := asynq.NewServeMux()
	jobs.Handlers{
		Plans:         services.Plans,
		Products:      services.Catalog,
		Subscriptions: services.Subscriptions,
		Logger:        logger,
	}.Register(mux)

	server := asynq.NewServer(infra.TaskRedis, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      asynqLogger{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
		ShutdownTimeout: 20 * time.Second,
	})

	scheduler := asynq.NewScheduler(infra.TaskRedis, &asynq.SchedulerOpts{Logger: asynqLogger{logger}})
	if err := jobs.RegisterPeriodic(scheduler, services.PlanAdapters.Products(), cfg.Plans.RefreshInterval, cfg.Worker.SweepInterval); err != nil {
		logger.Fatal().Err(err).Msg("register periodic tasks")
	}

	if err := server.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	logger.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Strs("refresh_products", services.PlanAdapters.Products()).
		Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct{ l zerolog.Logger }

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
