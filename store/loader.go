package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// Fallback supplies a spec for guilds with nothing in the store.
type Fallback func(guildID string) (cooldown.ConfigSpec, bool)

// FileFallback serves the file's defaults plus any guild section.
func FileFallback(fc *cooldown.FileConfig) Fallback {
	return func(guildID string) (cooldown.ConfigSpec, bool) {
		return fc.SpecFor(guildID), true
	}
}

// GuildGauge is told the registry size whenever a guild is added or dropped
type GuildGauge interface {
	SetGuilds(n int)
}

// Loader builds registry entries on demand from a Store. It is the only
// thing that touches the registry, and it serialises every access to it.
type Loader struct {
	mu       sync.Mutex
	registry *cooldown.Registry
	store    Store
	fallback Fallback
	gauge    GuildGauge
	logger   zerolog.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithGuildGauge reports the number of loaded guilds to g
func WithGuildGauge(g GuildGauge) LoaderOption {
	return func(l *Loader) { l.gauge = g }
}

// NewLoader creates a loader over registry and store. fallback may be nil.
func NewLoader(registry *cooldown.Registry, store Store, fallback Fallback, logger zerolog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: registry,
		store:    store,
		fallback: fallback,
		logger:   logger.With().Str("component", "loader").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the guild's config, creating it from the store (or the
// fallback) the first time the guild is seen. It returns
// cooldown.ErrConfigNotFound if neither has anything for the guild.
func (l *Loader) Config(ctx context.Context, guildID string) (*cooldown.GuildConfig, error) {
	if guildID == "" {
		return nil, cooldown.ErrEmptyGuildID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if guild, ok := l.registry.Get(guildID); ok {
		return guild, nil
	}

	spec, source, err := l.lookup(ctx, guildID)
	if err != nil {
		return nil, err
	}

	guild, err := l.registry.CreateConfig(guildID, spec, nil)
	if err != nil {
		return nil, err
	}
	l.trackGuilds()
	l.logger.Info().
		Str("guild_id", guildID).
		Str("source", source).
		Int("commands", len(guild.Commands())).
		Msg("guild config loaded")
	return guild, nil
}

func (l *Loader) lookup(ctx context.Context, guildID string) (cooldown.ConfigSpec, string, error) {
	spec, err := l.store.Get(ctx, guildID)
	if err == nil {
		return spec, "store", nil
	}
	if !errors.Is(err, cooldown.ErrConfigNotFound) {
		return nil, "", fmt.Errorf("load config for guild %s: %w", guildID, err)
	}
	if l.fallback != nil {
		if spec, ok := l.fallback(guildID); ok {
			return spec, "fallback", nil
		}
	}
	return nil, "", cooldown.ErrConfigNotFound
}

// Apply rebuilds the guild's config from spec and stores it. All existing
// state for the guild is dropped.
func (l *Loader) Apply(ctx context.Context, guildID string, spec cooldown.ConfigSpec) (*cooldown.GuildConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The registry only changes once the store has the new spec, so a
	// failed write leaves the running config and its state in place.
	if err := l.registry.Admit(guildID, spec); err != nil {
		return nil, err
	}
	if err := l.store.Set(ctx, guildID, spec); err != nil {
		return nil, fmt.Errorf("store config for guild %s: %w", guildID, err)
	}
	guild, err := l.registry.CreateConfig(guildID, spec, nil)
	if err != nil {
		return nil, err
	}
	l.trackGuilds()
	l.logger.Info().Str("guild_id", guildID).Int("entries", len(spec)).Msg("guild config applied")
	return guild, nil
}

// Spec returns what the guild would be built from, without building it.
func (l *Loader) Spec(ctx context.Context, guildID string) (cooldown.ConfigSpec, error) {
	spec, _, err := l.lookup(ctx, guildID)
	return spec, err
}

// Remove deletes the stored config and drops the guild from the registry.
func (l *Loader) Remove(ctx context.Context, guildID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, guildID); err != nil {
		return fmt.Errorf("delete config for guild %s: %w", guildID, err)
	}
	l.registry.Remove(guildID)
	l.trackGuilds()
	return nil
}

// Forget drops the guild from the registry but keeps its stored config, so
// the next Config call rebuilds it with fresh state.
func (l *Loader) Forget(guildID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := l.registry.Remove(guildID)
	l.trackGuilds()
	return removed
}

// Guilds returns the ids currently in the registry.
func (l *Loader) Guilds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Guilds()
}

// trackGuilds must be called with l.mu held
func (l *Loader) trackGuilds() {
	if l.gauge != nil {
		l.gauge.SetGuilds(l.registry.Len())
	}
}
