package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"dealflow-api/config"
	"dealflow-api/database"
	"dealflow-api/internal/app"
	"dealflow-api/internal/infra/logging"
	"dealflow-api/internal/infra/metrics"
	"dealflow-api/internal/infra/stripe"
	"dealflow-api/internal/repository"
)

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	db, err := database.InitDB(cfg.DBURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(reg, "dealflow")

	gateway := stripe.NewClient(stripe.Options{
		SecretKey:         cfg.StripeSecretKey,
		Timeout:           cfg.StripeTimeout,
		MaxNetworkRetries: 2,
		Logger:            log.With().Str("component", "stripe").Logger(),
		Metrics:           rec,
	})

	router := app.NewRouter(app.Deps{
		Config:   cfg,
		Log:      log,
		Repos:    repository.NewGorm(db),
		Provider: gateway,
		Catalog:  stripe.NewCatalog(gateway, cfg.PriceCacheSize, cfg.PriceCacheTTL),
		Metrics:  rec,
		Gatherer: reg,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := serveUntilSignal(server, log); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

func serveUntilSignal(server *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		errCh <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-quit:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info().Msg("server stopped")
		return nil
	}
}
