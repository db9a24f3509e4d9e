package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KanavDutta/cmdcooldown/internal/bootstrap"
	"github.com/KanavDutta/cmdcooldown/metrics"
	"github.com/KanavDutta/cmdcooldown/middleware"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
	"github.com/KanavDutta/cmdcooldown/store"
)

func main() {
	_ = godotenv.Load()
	logger := bootstrap.Logger("cmdcooldown-bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token := strings.TrimSpace(bootstrap.GetEnv("DISCORD_BOT_TOKEN", ""))
	if token == "" {
		logger.Fatal().Msg("DISCORD_BOT_TOKEN is required")
	}
	if !strings.HasPrefix(strings.ToLower(token), "bot ") {
		token = "Bot " + token
	}

	storage, closeStorage, err := bootstrap.Storage(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open config storage")
	}
	defer closeStorage()

	fallback, err := bootstrap.Fallback(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config file")
	}

	registry := cooldown.NewRegistry(cooldown.WithLogger(logger))
	tracker := metrics.NewMetrics(prometheus.DefaultRegisterer)
	loader := store.NewLoader(registry, storage, fallback, logger, store.WithGuildGauge(tracker))
	gate := middleware.NewGate(loader, nil,
		middleware.WithRecorder(tracker),
		middleware.WithNotifier(Notifier()),
		middleware.WithGateLogger(logger),
	)

	s, err := discordgo.New(token)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	router := NewRouter(s, loader, gate, logger)
	router.Handlers()

	if err := s.Open(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to discord")
	}
	defer s.Close()
	logger.Info().Str("user", s.State.User.Username).Str("id", s.State.User.ID).Msg("connected to discord")

	if err := router.Register(); err != nil {
		logger.Fatal().Err(err).Msg("failed to register slash commands")
	}

	if addr := bootstrap.GetEnv("METRICS_ADDR", ""); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", addr).Msg("serving metrics")
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
}
