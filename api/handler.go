package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/KanavDutta/cmdcooldown/core"
	"github.com/KanavDutta/cmdcooldown/middleware"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
	"github.com/KanavDutta/cmdcooldown/store"
)

// Handler serves the cooldown API for every guild
type Handler struct {
	gate   *middleware.Gate
	loader *store.Loader
	logger zerolog.Logger
}

// NewHandler creates a new API handler. gate must be built on loader so both
// serialise on the same guild locks.
func NewHandler(gate *middleware.Gate, loader *store.Loader, logger zerolog.Logger) *Handler {
	return &Handler{
		gate:   gate,
		loader: loader,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Register mounts the guild routes under /v1
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/guilds/{guildID}", func(r chi.Router) {
		r.Use(RequestLogger(h.logger))
		r.Post("/check", h.Check)
		r.Post("/append-seconds", h.AppendSeconds)
		r.Post("/append-uses", h.AppendUses)
		r.Put("/config", h.PutConfig)
		r.Get("/config", h.GetConfig)
		r.Get("/users/{userID}/{command}", h.GetUserState)
		r.Delete("/", h.DeleteGuild)
	})
}

// CheckRequest represents a cooldown check
type CheckRequest struct {
	Command     string `json:"command"`
	UserID      string `json:"user_id"`
	TimestampMs *int64 `json:"timestamp_ms,omitempty"` // Optional: defaults to now
	InspectOnly bool   `json:"inspect_only,omitempty"` // Report without using an allowance
}

// CheckResponse represents the outcome of a check
type CheckResponse struct {
	Allowed     bool   `json:"allowed"`
	Outcome     string `json:"outcome"`
	Blocked     bool   `json:"blocked"`
	CooldownHit bool   `json:"cooldown_hit"`
	TriedAgain  bool   `json:"tried_again"`
	SecondsLeft int64  `json:"seconds_left"`
	UsesLeft    int    `json:"uses_left"`
	Limit       int    `json:"limit"`
	CoolTime    int    `json:"cool_time"`
}

// AppendSecondsRequest shifts a user's cooldown
type AppendSecondsRequest struct {
	Command string `json:"command"`
	UserID  string `json:"user_id"`
	Seconds int64  `json:"seconds"`
}

// AppendUsesRequest grants (or takes away) uses
type AppendUsesRequest struct {
	Command string `json:"command"`
	UserID  string `json:"user_id"`
	Uses    int    `json:"uses"`
}

// CommandInfo describes one bound command
type CommandInfo struct {
	Name       string   `json:"name"`
	Uses       int      `json:"uses"`
	CoolTime   int      `json:"cool_time"`
	Disabled   bool     `json:"disabled"`
	Users      int      `json:"users"`
	SharedWith []string `json:"shared_with,omitempty"`
}

// GuildConfigResponse lists a guild's bound commands
type GuildConfigResponse struct {
	GuildID  string        `json:"guild_id"`
	Commands []CommandInfo `json:"commands"`
}

// UserStateResponse is a snapshot of one user's cooldown for one command
type UserStateResponse struct {
	GuildID string `json:"guild_id"`
	Command string `json:"command"`
	Tracked bool   `json:"tracked"` // false until the user first touches the command
	cooldown.UserState
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Check handles POST /v1/guilds/{guildID}/check
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Command == "" || req.UserID == "" {
		h.sendError(w, http.StatusBadRequest, "missing_fields", "command and user_id are required")
		return
	}

	inv := middleware.Invocation{
		GuildID: chi.URLParam(r, "guildID"),
		Command: req.Command,
		UserID:  req.UserID,
	}
	if req.TimestampMs != nil {
		inv.At = time.UnixMilli(*req.TimestampMs)
	}

	check := h.gate.Check
	if req.InspectOnly {
		check = h.gate.Inspect
	}
	d, err := check(r.Context(), inv)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if !d.Configured {
		h.sendError(w, http.StatusNotFound, "command_not_limited", "No cooldown is configured for this command")
		return
	}

	status := http.StatusOK
	switch {
	case d.Result.Blocked:
		status = http.StatusForbidden
	case d.Result.CooldownHit:
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.FormatInt(d.Result.RetryAfterSeconds(), 10))
	}

	h.sendJSON(w, status, CheckResponse{
		Allowed:     d.Allowed(),
		Outcome:     d.Result.Outcome(),
		Blocked:     d.Result.Blocked,
		CooldownHit: d.Result.CooldownHit,
		TriedAgain:  d.Result.TriedAgain,
		SecondsLeft: d.Result.SecondsLeft,
		UsesLeft:    d.UsesLeft,
		Limit:       d.Limit,
		CoolTime:    d.Window,
	})
}

// AppendSeconds handles POST /v1/guilds/{guildID}/append-seconds
func (h *Handler) AppendSeconds(w http.ResponseWriter, r *http.Request) {
	var req AppendSecondsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Command == "" || req.UserID == "" {
		h.sendError(w, http.StatusBadRequest, "missing_fields", "command and user_id are required")
		return
	}

	guildID := chi.URLParam(r, "guildID")
	if err := h.gate.AppendSeconds(r.Context(), guildID, req.Command, req.UserID, req.Seconds); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeUserState(w, r, guildID, req.Command, req.UserID)
}

// AppendUses handles POST /v1/guilds/{guildID}/append-uses
func (h *Handler) AppendUses(w http.ResponseWriter, r *http.Request) {
	var req AppendUsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Command == "" || req.UserID == "" {
		h.sendError(w, http.StatusBadRequest, "missing_fields", "command and user_id are required")
		return
	}

	guildID := chi.URLParam(r, "guildID")
	if err := h.gate.AppendUses(r.Context(), guildID, req.Command, req.UserID, req.Uses); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeUserState(w, r, guildID, req.Command, req.UserID)
}

// PutConfig handles PUT /v1/guilds/{guildID}/config. The body is an ordered
// object of command names to records; the guild is rebuilt from scratch.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var spec cooldown.ConfigSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := spec.Validate(); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	guildID := chi.URLParam(r, "guildID")
	unlock := h.gate.Locks().Lock(guildID)
	guild, err := h.loader.Apply(r.Context(), guildID, spec)
	if err != nil {
		unlock()
		h.handleError(w, err)
		return
	}
	resp := describe(guild)
	unlock()

	h.sendJSON(w, http.StatusOK, resp)
}

// GetConfig handles GET /v1/guilds/{guildID}/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	unlock := h.gate.Locks().Lock(guildID)
	guild, err := h.loader.Config(r.Context(), guildID)
	if err != nil {
		unlock()
		h.handleError(w, err)
		return
	}
	resp := describe(guild)
	unlock()

	h.sendJSON(w, http.StatusOK, resp)
}

// GetUserState handles GET /v1/guilds/{guildID}/users/{userID}/{command}
func (h *Handler) GetUserState(w http.ResponseWriter, r *http.Request) {
	h.writeUserState(w, r, chi.URLParam(r, "guildID"), chi.URLParam(r, "command"), chi.URLParam(r, "userID"))
}

// DeleteGuild handles DELETE /v1/guilds/{guildID}
func (h *Handler) DeleteGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	unlock := h.gate.Locks().Lock(guildID)
	err := h.loader.Remove(r.Context(), guildID)
	unlock()
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeUserState(w http.ResponseWriter, r *http.Request, guildID, command, userID string) {
	unlock := h.gate.Locks().Lock(guildID)
	guild, err := h.loader.Config(r.Context(), guildID)
	if err != nil {
		unlock()
		h.handleError(w, err)
		return
	}

	limit, ok := guild.Limit(command)
	if !ok {
		unlock()
		h.sendError(w, http.StatusNotFound, "command_not_limited", "No cooldown is configured for this command")
		return
	}

	resp := UserStateResponse{GuildID: guildID, Command: command}
	state, tracked := guild.UserState(command, userID)
	if !tracked {
		state = *core.NewUserState(userID, limit.Policy())
	}
	unlock()

	resp.Tracked = tracked
	resp.UserState = state
	h.sendJSON(w, http.StatusOK, resp)
}

// describe must be called with the guild lock held
func describe(guild *cooldown.GuildConfig) GuildConfigResponse {
	names := guild.Commands()
	resp := GuildConfigResponse{GuildID: guild.ID(), Commands: make([]CommandInfo, 0, len(names))}
	for _, name := range names {
		limit, _ := guild.Limit(name)
		p := limit.Policy()
		info := CommandInfo{
			Name:     name,
			Uses:     p.AllowedUses,
			CoolTime: p.WindowSeconds,
			Disabled: p.Permanent(),
			Users:    limit.Users(),
		}
		for _, other := range names {
			if other != name && guild.Shares(name, other) {
				info.SharedWith = append(info.SharedWith, other)
			}
		}
		resp.Commands = append(resp.Commands, info)
	}
	return resp
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cooldown.ErrConfigNotFound):
		h.sendError(w, http.StatusNotFound, "guild_not_configured", "No cooldown config for this guild")
	case errors.Is(err, middleware.ErrNotLimited):
		h.sendError(w, http.StatusNotFound, "command_not_limited", "No cooldown is configured for this command")
	case errors.Is(err, cooldown.ErrInvalidConfig):
		h.sendError(w, http.StatusBadRequest, "invalid_config", err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		h.sendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.sendJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
