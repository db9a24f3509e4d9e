package main

import (
	"fmt"
	"strings"

	"github.com/KanavDutta/cmdcooldown/middleware"
)

// denialMessage is what a user sees the first time they are turned away
func denialMessage(command string, d middleware.Decision) string {
	if d.Result.Blocked {
		return fmt.Sprintf("`/%s` is disabled on this server.", command)
	}
	return fmt.Sprintf("`/%s` is on cooldown. Try again in %s.", command, formatSeconds(d.Result.SecondsLeft))
}

// inspectMessage answers /cooldown check
func inspectMessage(command string, d middleware.Decision) string {
	switch {
	case !d.Configured:
		return fmt.Sprintf("`/%s` has no cooldown here.", command)
	case d.Result.Blocked:
		return fmt.Sprintf("`/%s` is disabled on this server.", command)
	case d.Result.CooldownHit:
		return fmt.Sprintf("`/%s` is on cooldown for another %s.", command, formatSeconds(d.Result.SecondsLeft))
	default:
		return fmt.Sprintf("`/%s` is ready: %d of %d uses left (window %s).",
			command, d.UsesLeft, d.Limit, formatSeconds(int64(d.Window)))
	}
}

func formatSeconds(s int64) string {
	if s < 0 {
		s = 0
	}
	var parts []string
	if h := s / 3600; h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m := s % 3600 / 60; m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if sec := s % 60; sec > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", sec))
	}
	return strings.Join(parts, " ")
}
