package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/KanavDutta/cmdcooldown/core"
	"github.com/KanavDutta/cmdcooldown/pkg/cooldown"
)

var (
	// ErrOnCooldown is returned by wrapped handlers when the user must wait
	ErrOnCooldown = errors.New("command on cooldown")

	// ErrCommandBlocked is returned by wrapped handlers for disabled commands
	ErrCommandBlocked = errors.New("command disabled")

	// ErrNotLimited is returned when adjusting a command with no cooldown
	ErrNotLimited = errors.New("command has no cooldown")
)

// ConfigProvider resolves the cooldown config of a guild. It returns
// cooldown.ErrConfigNotFound for guilds without cooldowns.
type ConfigProvider interface {
	Config(ctx context.Context, guildID string) (*cooldown.GuildConfig, error)
}

// Recorder receives every evaluation and notice decision
type Recorder interface {
	RecordEvaluation(guildID, command, userID string, res core.Result)
	RecordNotice(sent bool)
}

// Notifier tells a user their command was denied
type Notifier interface {
	NotifyDenied(ctx context.Context, inv Invocation, res cooldown.Result) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, inv Invocation, res cooldown.Result) error

// NotifyDenied calls f
func (f NotifierFunc) NotifyDenied(ctx context.Context, inv Invocation, res cooldown.Result) error {
	return f(ctx, inv, res)
}

// Invocation is one attempt by a user to run a command in a guild
type Invocation struct {
	GuildID string
	Command string
	UserID  string
	At      time.Time // zero means now
}

// HandlerFunc runs a command
type HandlerFunc func(ctx context.Context, inv Invocation) error

// Decision is the result of a gate check
type Decision struct {
	Result     cooldown.Result
	Configured bool // false when the guild or command has no cooldown
	UsesLeft   int  // remaining uses after this check
	Limit      int  // uses per window
	Window     int  // window in seconds
}

// Allowed reports whether the invocation may run
func (d Decision) Allowed() bool {
	return !d.Configured || d.Result.Allowed()
}

// Err returns the sentinel for a denied decision, or nil
func (d Decision) Err() error {
	switch {
	case !d.Configured:
		return nil
	case d.Result.Blocked:
		return ErrCommandBlocked
	case d.Result.CooldownHit:
		return fmt.Errorf("%w: %ds left", ErrOnCooldown, d.Result.SecondsLeft)
	default:
		return nil
	}
}

// Gate evaluates invocations against guild cooldowns while holding the
// guild's lock.
type Gate struct {
	configs  ConfigProvider
	locks    *GuildLocks
	notifier Notifier
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithNotifier sets who is told about denials
func WithNotifier(n Notifier) GateOption {
	return func(g *Gate) { g.notifier = n }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) GateOption {
	return func(g *Gate) { g.recorder = r }
}

// WithGateLogger sets the logger
func WithGateLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger.With().Str("component", "gate").Logger() }
}

// WithClock overrides time.Now for invocations without a timestamp
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate. locks may be shared with other hosts of the same
// registry; nil gets a private set.
func NewGate(configs ConfigProvider, locks *GuildLocks, opts ...GateOption) *Gate {
	if locks == nil {
		locks = NewGuildLocks()
	}
	g := &Gate{
		configs: configs,
		locks:   locks,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Locks returns the lock set the gate serialises on
func (g *Gate) Locks() *GuildLocks {
	return g.locks
}

// Check records the invocation and returns the decision.
func (g *Gate) Check(ctx context.Context, inv Invocation) (Decision, error) {
	return g.evaluate(ctx, inv, false)
}

// Inspect reports what Check would decide without using up anything.
// A denial still marks the user as having tried again.
func (g *Gate) Inspect(ctx context.Context, inv Invocation) (Decision, error) {
	return g.evaluate(ctx, inv, true)
}

func (g *Gate) evaluate(ctx context.Context, inv Invocation, inspectOnly bool) (Decision, error) {
	ts := inv.At
	if ts.IsZero() {
		ts = g.now()
	}

	unlock := g.locks.Lock(inv.GuildID)
	defer unlock()

	guild, err := g.configs.Config(ctx, inv.GuildID)
	if errors.Is(err, cooldown.ErrConfigNotFound) {
		return Decision{}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	res, ok := guild.Evaluate(inv.Command, inv.UserID, ts.UnixMilli(), inspectOnly)
	if !ok {
		return Decision{}, nil
	}

	d := Decision{Result: res, Configured: true}
	if limit, ok := guild.Limit(inv.Command); ok {
		d.Limit = limit.Policy().AllowedUses
		d.Window = limit.Policy().WindowSeconds
	}
	if state, ok := guild.UserState(inv.Command, inv.UserID); ok {
		d.UsesLeft = state.UsesLeft
	}

	if !inspectOnly && g.recorder != nil {
		g.recorder.RecordEvaluation(inv.GuildID, inv.Command, inv.UserID, res)
	}

	g.logger.Debug().
		Str("guild_id", inv.GuildID).
		Str("command", inv.Command).
		Str("user_id", inv.UserID).
		Str("outcome", res.Outcome()).
		Bool("inspect", inspectOnly).
		Int64("seconds_left", res.SecondsLeft).
		Msg("cooldown evaluated")

	return d, nil
}

// AppendSeconds shifts the user's cooldown by seconds
func (g *Gate) AppendSeconds(ctx context.Context, guildID, command, userID string, seconds int64) error {
	return g.mutate(ctx, guildID, command, func(guild *cooldown.GuildConfig) {
		guild.AppendSeconds(command, userID, seconds)
	})
}

// AppendUses adds points to the user's remaining uses
func (g *Gate) AppendUses(ctx context.Context, guildID, command, userID string, points int) error {
	return g.mutate(ctx, guildID, command, func(guild *cooldown.GuildConfig) {
		guild.AppendUses(command, userID, points)
	})
}

func (g *Gate) mutate(ctx context.Context, guildID, command string, fn func(*cooldown.GuildConfig)) error {
	unlock := g.locks.Lock(guildID)
	defer unlock()

	guild, err := g.configs.Config(ctx, guildID)
	if err != nil {
		return err
	}
	if _, ok := guild.Limit(command); !ok {
		return fmt.Errorf("%w: %s", ErrNotLimited, command)
	}
	fn(guild)
	return nil
}

// Wrap runs next only when the invocation is allowed. On a denial the
// notifier is called unless the user had already been told, and the
// matching sentinel error is returned.
func (g *Gate) Wrap(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, inv Invocation) error {
		d, err := g.Check(ctx, inv)
		if err != nil {
			return fmt.Errorf("cooldown check for /%s: %w", inv.Command, err)
		}
		if d.Allowed() {
			return next(ctx, inv)
		}

		notify := !d.Result.TriedAgain
		if g.recorder != nil {
			g.recorder.RecordNotice(notify)
		}
		if notify && g.notifier != nil {
			if err := g.notifier.NotifyDenied(ctx, inv, d.Result); err != nil {
				g.logger.Warn().Err(err).
					Str("guild_id", inv.GuildID).
					Str("command", inv.Command).
					Msg("failed to send cooldown notice")
			}
		}
		return d.Err()
	}
}
