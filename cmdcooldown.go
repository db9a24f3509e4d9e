// Package cmdcooldown re-exports the types most hosts need to gate commands.
package cmdcooldown

import (
	"github.com/KanavDutta/cmdcooldown/middleware"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

// Re-export main types for convenience
type (
	Registry    = cooldown.Registry
	GuildConfig = cooldown.GuildConfig
	ConfigSpec  = cooldown.ConfigSpec
	Gate        = middleware.Gate
	Invocation  = middleware.Invocation
)

var (
	// NewRegistry creates an empty guild registry
	NewRegistry = cooldown.NewRegistry

	// NewGate creates a command gate over a config provider
	NewGate = middleware.NewGate
)
