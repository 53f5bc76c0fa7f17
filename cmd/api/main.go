package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/backend-langganan/internal/app"
	"github.com/noah-isme/backend-langganan/internal/config"
	"github.com/noah-isme/backend-langganan/internal/health"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "api").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flushTracer := app.InitObservability(ctx, cfg, "langganan-api", logger)
	defer flushTracer(context.Background())

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	infra, err := app.OpenInfra(startCtx, cfg, "langganan-api", logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise infrastructure")
	}
	defer infra.Close(logger)

	tasks := app.TaskClient(infra)
	defer func() {
		if err := tasks.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	services, err := app.NewServices(cfg, infra, tasks, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: app.NewRouter(app.RouterDeps{
			Config:   cfg,
			Services: services,
			Redis:    infra.Redis,
			Checker:  health.Probe{DB: infra.Pool, Redis: infra.Redis},
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("payment_provider", cfg.Payment.Provider).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	// fail readiness first so the load balancer stops routing new requests
	health.SetReady(false)
	logger.Info().Dur("drain", cfg.HTTP.DrainDelay).Msg("shutdown requested")
	time.Sleep(cfg.HTTP.DrainDelay)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}
