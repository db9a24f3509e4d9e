package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KanavDutta/cmdcooldown/api"
	"github.com/KanavDutta/cmdcooldown/internal/bootstrap"
	"github.com/KanavDutta/cmdcooldown/metrics"
	"github.com/KanavDutta/cmdcooldown/middleware"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
	"github.com/KanavDutta/cmdcooldown/store"
)

func main() {
	_ = godotenv.Load()
	logger := bootstrap.Logger("cmdcooldown-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configuration
	port := bootstrap.GetEnv("PORT", "8080")

	storage, closeStorage, err := bootstrap.Storage(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open config storage")
	}
	defer closeStorage()

	fallback, err := bootstrap.Fallback(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config file")
	}

	identity, err := middleware.ParseIdentity(bootstrap.GetEnv("IDENTITY", "header:X-User-ID,ip"))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid IDENTITY")
	}

	registry := cooldown.NewRegistry(cooldown.WithLogger(logger))
	tracker := metrics.NewMetrics(prometheus.DefaultRegisterer)
	loader := store.NewLoader(registry, storage, fallback, logger, store.WithGuildGauge(tracker))
	gate := middleware.NewGate(loader, nil,
		middleware.WithRecorder(tracker),
		middleware.WithGateLogger(logger),
	)

	// Routes
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	api.NewHandler(gate, loader, logger).Register(r)
	r.Handle("/stats", api.NewStatsHandler(tracker))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", healthHandler)
	r.Get("/dashboard", dashboardHandler)

	// Any route under /commands is limited per guild using the X-Guild-ID
	// header, with the path as the command name.
	r.With(gate.HTTP(identity, nil)).Get("/commands/*", commandHandler)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("cmdcooldown server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "cmdcooldown",
		"version": "1.0.0",
	})
}

func commandHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"command": r.URL.Path,
		"status":  "ran",
	})
}
