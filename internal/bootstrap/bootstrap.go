// Package bootstrap holds the wiring shared by the binaries: logger, config
// store and file fallback, all driven by environment variables.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
	"github.com/KanavDutta/cmdcooldown/store"
)

// GetEnv returns the variable or defaultValue when it is unset
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Logger configures the global zerolog logger from LOG_LEVEL and
// LOG_FORMAT (json or console) and returns it.
func Logger(service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(GetEnv("LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stderr)
	if GetEnv("LOG_FORMAT", "console") == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	logger = logger.With().Timestamp().Str("service", service).Logger()
	log.Logger = logger
	return logger
}

func noClose() error { return nil }

// Storage opens Redis when REDIS_ADDR is set and falls back to memory.
// The returned close func is never nil, even alongside an error.
func Storage(ctx context.Context, logger zerolog.Logger) (store.Store, func() error, error) {
	addr := GetEnv("REDIS_ADDR", "")
	if addr == "" {
		logger.Warn().Msg("using in-memory config storage, configs are lost on restart")
		return store.NewMemoryStore(), noClose, nil
	}

	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, noClose, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisStore := store.NewRedisStore(store.RedisConfig{
		Addr:     addr,
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		redisStore.Close()
		return nil, noClose, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	event := logger.Info().Str("addr", addr).Int("db", db)
	if guilds, err := redisStore.Guilds(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("could not count stored guild configs")
	} else {
		event = event.Int("stored_guilds", len(guilds))
	}
	event.Msg("connected to redis")
	return redisStore, redisStore.Close, nil
}

// Fallback loads CONFIG_FILE, if set, as the spec source for guilds with
// nothing stored.
func Fallback(logger zerolog.Logger) (store.Fallback, error) {
	path := GetEnv("CONFIG_FILE", "")
	if path == "" {
		return nil, nil
	}
	fc, err := cooldown.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("path", path).
		Int("defaults", len(fc.Defaults)).
		Int("guilds", len(fc.Guilds)).
		Msg("loaded cooldown config file")
	return store.FileFallback(fc), nil
}
