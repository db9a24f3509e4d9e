package store

import (
	"context"

	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// Store defines the interface for guild configuration storage.
// Get returns cooldown.ErrConfigNotFound when nothing is stored for a guild.
type Store interface {
	Get(ctx context.Context, guildID string) (cooldown.ConfigSpec, error)
	Set(ctx context.Context, guildID string, spec cooldown.ConfigSpec) error
	Delete(ctx context.Context, guildID string) error
}
