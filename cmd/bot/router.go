package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/KanavDutta/cmdcooldown/middleware"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
	"github.com/KanavDutta/cmdcooldown/store"
)

type interactionKey struct{}

// Router dispatches slash commands through the cooldown gate
type Router struct {
	s      *discordgo.Session
	gate   *middleware.Gate
	loader *store.Loader
	logger zerolog.Logger

	gated map[string]middleware.HandlerFunc
}

// NewRouter wires the gated command handlers
func NewRouter(s *discordgo.Session, loader *store.Loader, gate *middleware.Gate, logger zerolog.Logger) *Router {
	r := &Router{
		s:      s,
		gate:   gate,
		loader: loader,
		logger: logger.With().Str("component", "discord").Logger(),
	}
	r.gated = map[string]middleware.HandlerFunc{
		"ping":     gate.Wrap(r.ping),
		"roll":     gate.Wrap(r.roll),
		"coinflip": gate.Wrap(r.coinflip),
	}
	return r
}

// Notifier replies to the denied interaction. Wire it into the gate with
// middleware.WithNotifier.
func Notifier() middleware.Notifier {
	return middleware.NotifierFunc(func(ctx context.Context, inv middleware.Invocation, res cooldown.Result) error {
		ic, ok := ctx.Value(interactionKey{}).(*discordgo.InteractionCreate)
		if !ok {
			return errors.New("no interaction in context")
		}
		s, _ := ctx.Value(sessionKey{}).(*discordgo.Session)
		if s == nil {
			return errors.New("no session in context")
		}
		return replyEphemeral(s, ic, denialMessage(inv.Command, middleware.Decision{Result: res, Configured: true}))
	})
}

type sessionKey struct{}

// Register overwrites the global command set
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	if _, err := r.s.ApplicationCommandBulkOverwrite(appID, "", commands); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

// Handlers attaches the session event handlers
func (r *Router) Handlers() {
	r.s.AddHandler(r.onGuildCreate)
	r.s.AddHandler(r.onGuildDelete)
	r.s.AddHandler(r.onInteraction)
}

// onGuildCreate builds the guild's cooldown config as soon as the bot sees it
func (r *Router) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock := r.gate.Locks().Lock(g.ID)
	guild, err := r.loader.Config(ctx, g.ID)
	unlock()

	switch {
	case errors.Is(err, cooldown.ErrConfigNotFound):
		r.logger.Debug().Str("guild_id", g.ID).Msg("no cooldowns configured for guild")
	case err != nil:
		r.logger.Error().Err(err).Str("guild_id", g.ID).Msg("failed to load guild cooldowns")
	default:
		r.logger.Info().
			Str("guild_id", g.ID).
			Str("guild", g.Name).
			Strs("commands", guild.Commands()).
			Msg("guild cooldowns ready")
	}
}

// onGuildDelete drops in-memory state; the stored config is kept for when
// the bot comes back.
func (r *Router) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}
	unlock := r.gate.Locks().Lock(g.ID)
	r.loader.Forget(g.ID)
	unlock()
}

func (r *Router) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand || ic.GuildID == "" || ic.Member == nil {
		return
	}
	data := ic.ApplicationCommandData()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Str("command", data.Name).Msg("panic in slash command")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = context.WithValue(ctx, interactionKey{}, ic)
	ctx = context.WithValue(ctx, sessionKey{}, s)

	if data.Name == "cooldown" {
		r.cooldownCommand(ctx, s, ic, data)
		return
	}

	handler, ok := r.gated[data.Name]
	if !ok {
		return
	}

	at, err := discordgo.SnowflakeTimestamp(ic.ID)
	if err != nil {
		at = time.Now()
	}
	inv := middleware.Invocation{
		GuildID: ic.GuildID,
		Command: data.Name,
		UserID:  ic.Member.User.ID,
		At:      at,
	}

	// Repeat denials are left unanswered so the channel is not spammed.
	err = handler(ctx, inv)
	switch {
	case err == nil, errors.Is(err, middleware.ErrOnCooldown), errors.Is(err, middleware.ErrCommandBlocked):
	default:
		r.logger.Error().Err(err).Str("command", data.Name).Str("guild_id", ic.GuildID).Msg("slash command failed")
		_ = replyEphemeral(s, ic, "Something went wrong running that command.")
	}
}

func (r *Router) ping(ctx context.Context, _ middleware.Invocation) error {
	return reply(ctx, "Pong!")
}

func (r *Router) roll(ctx context.Context, _ middleware.Invocation) error {
	ic := ctx.Value(interactionKey{}).(*discordgo.InteractionCreate)
	sides := int64(6)
	for _, opt := range ic.ApplicationCommandData().Options {
		if opt.Name == "sides" {
			sides = opt.IntValue()
		}
	}
	return reply(ctx, fmt.Sprintf("You rolled a %d (d%d).", rand.Int64N(sides)+1, sides))
}

func (r *Router) coinflip(ctx context.Context, _ middleware.Invocation) error {
	side := "Heads"
	if rand.IntN(2) == 1 {
		side = "Tails"
	}
	return reply(ctx, side+"!")
}

func (r *Router) cooldownCommand(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, o := range sub.Options {
		opts[o.Name] = o
	}
	command := opts["command"].StringValue()

	if sub.Name == "check" {
		d, err := r.gate.Inspect(ctx, middleware.Invocation{GuildID: ic.GuildID, Command: command, UserID: ic.Member.User.ID})
		if err != nil {
			r.logger.Error().Err(err).Str("guild_id", ic.GuildID).Msg("cooldown inspect failed")
			_ = replyEphemeral(s, ic, "Could not read cooldowns right now.")
			return
		}
		_ = replyEphemeral(s, ic, inspectMessage(command, d))
		return
	}

	if ic.Member.Permissions&adminPermission == 0 {
		_ = replyEphemeral(s, ic, "You need the Manage Server permission for that.")
		return
	}

	target := opts["user"].UserValue(nil)
	var (
		err error
		msg string
	)
	switch sub.Name {
	case "extend":
		seconds := opts["seconds"].IntValue()
		err = r.gate.AppendSeconds(ctx, ic.GuildID, command, target.ID, seconds)
		msg = fmt.Sprintf("Shifted %s's `/%s` cooldown by %ds.", target.Mention(), command, seconds)
	case "grant":
		uses := int(opts["uses"].IntValue())
		err = r.gate.AppendUses(ctx, ic.GuildID, command, target.ID, uses)
		msg = fmt.Sprintf("Gave %s %d extra `/%s` uses.", target.Mention(), uses, command)
	default:
		return
	}

	switch {
	case errors.Is(err, middleware.ErrNotLimited), errors.Is(err, cooldown.ErrConfigNotFound):
		msg = fmt.Sprintf("`/%s` has no cooldown here.", command)
	case err != nil:
		r.logger.Error().Err(err).Str("guild_id", ic.GuildID).Str("subcommand", sub.Name).Msg("cooldown adjust failed")
		msg = "Could not update cooldowns right now."
	default:
		r.logger.Info().
			Str("guild_id", ic.GuildID).
			Str("by", ic.Member.User.ID).
			Str("user_id", target.ID).
			Str("command", command).
			Str("subcommand", sub.Name).
			Msg("cooldown adjusted")
	}
	_ = replyEphemeral(s, ic, msg)
}

func reply(ctx context.Context, content string) error {
	ic := ctx.Value(interactionKey{}).(*discordgo.InteractionCreate)
	s := ctx.Value(sessionKey{}).(*discordgo.Session)
	return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func replyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
