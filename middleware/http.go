package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// GuildHeader carries the guild id on HTTP requests
const GuildHeader = "X-Guild-ID"

// RouteExtractor maps a request to the command name it is limited under
type RouteExtractor func(*http.Request) string

// PathRoute uses the URL path as the command name
func PathRoute(r *http.Request) string {
	return r.URL.Path
}

// HTTP returns middleware that applies guild cooldowns to HTTP routes.
// Requests without a guild header, or for routes with no cooldown, pass
// through untouched.
//
// Headers set on limited routes:
//   - X-Cooldown-Limit: uses per window
//   - X-Cooldown-Remaining: uses left in the current window
//   - Retry-After: seconds to wait (cooldown only)
func (g *Gate) HTTP(identity IdentityExtractor, route RouteExtractor) func(http.Handler) http.Handler {
	if route == nil {
		route = PathRoute
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guildID := r.Header.Get(GuildHeader)
			if guildID == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := identity(r)
			if err != nil {
				writeDenied(w, http.StatusUnauthorized, "missing_identity", err.Error(), 0)
				return
			}

			d, err := g.Check(r.Context(), Invocation{
				GuildID: guildID,
				Command: route(r),
				UserID:  userID,
			})
			if err != nil {
				g.logger.Error().Err(err).Str("guild_id", guildID).Msg("cooldown check failed")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !d.Configured {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-Cooldown-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-Cooldown-Remaining", strconv.Itoa(max(d.UsesLeft, 0)))

			switch err := d.Err(); {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrCommandBlocked):
				writeDenied(w, http.StatusForbidden, "command_disabled", "This command is disabled.", 0)
			default:
				w.Header().Set("Retry-After", strconv.FormatInt(d.Result.RetryAfterSeconds(), 10))
				writeDenied(w, http.StatusTooManyRequests, "cooldown", "Command on cooldown. Please try again later.", d.Result.SecondsLeft)
			}
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, code, message string, secondsLeft int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	if secondsLeft > 0 {
		body["seconds_left"] = secondsLeft
	}
	json.NewEncoder(w).Encode(body)
}
