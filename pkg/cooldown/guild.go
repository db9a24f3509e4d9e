package cooldown

import (
	"sort"

	"github.com/KanavDutta/cmdcooldown/core"
)

// Re-exported so callers only need this package.
type (
	Result    = core.Result
	UserState = core.UserState
	Policy    = core.Policy
)

// CommandLimit is the policy of one command plus the state of every user
// that has used it. Glued group members share a single *CommandLimit.
type CommandLimit struct {
	policy core.Policy
	users  map[string]*core.UserState
}

// NewCommandLimit creates a limit with no user state.
func NewCommandLimit(uses, coolTime int) *CommandLimit {
	return newCommandLimit(core.Policy{AllowedUses: uses, WindowSeconds: coolTime})
}

func newCommandLimit(p core.Policy) *CommandLimit {
	return &CommandLimit{
		policy: p,
		users:  make(map[string]*core.UserState),
	}
}

// Policy returns the uses/window pair.
func (c *CommandLimit) Policy() core.Policy {
	return c.policy
}

// Users returns how many users have state under this limit.
func (c *CommandLimit) Users() int {
	return len(c.users)
}

// user returns the state for userID, creating it at full allowance.
func (c *CommandLimit) user(userID string) *core.UserState {
	state, ok := c.users[userID]
	if !ok {
		state = core.NewUserState(userID, c.policy)
		c.users[userID] = state
	}
	return state
}

// GuildConfig maps command names to their limits for one guild.
//
// A GuildConfig does no locking. Callers that share one across goroutines
// must serialise access themselves.
type GuildConfig struct {
	id       string
	commands map[string]*CommandLimit
}

func newGuildConfig(id string) *GuildConfig {
	return &GuildConfig{
		id:       id,
		commands: make(map[string]*CommandLimit),
	}
}

// ID returns the guild id.
func (g *GuildConfig) ID() string {
	return g.id
}

// Evaluate records a use of command by userID at timestampMs (unix ms) and
// reports whether it went through. The second return is false when the
// command is not configured, in which case no restriction applies.
//
// With inspectOnly the allowance and timestamp are left alone; a cooldown hit
// still marks the user as having tried again.
func (g *GuildConfig) Evaluate(command, userID string, timestampMs int64, inspectOnly bool) (core.Result, bool) {
	limit, ok := g.commands[command]
	if !ok {
		return core.Result{}, false
	}
	return core.Evaluate(limit.policy, limit.user(userID), timestampMs, inspectOnly), true
}

// AppendSeconds moves the user's last timestamp forward by seconds (or back,
// if negative), extending or shortening an active cooldown. State created
// here starts at full allowance with a zero timestamp.
func (g *GuildConfig) AppendSeconds(command, userID string, seconds int64) {
	limit, ok := g.commands[command]
	if !ok {
		return
	}
	core.ShiftSeconds(limit.user(userID), seconds)
}

// AppendUses adds points (possibly negative) to the user's remaining uses.
// Nothing is clamped.
func (g *GuildConfig) AppendUses(command, userID string, points int) {
	limit, ok := g.commands[command]
	if !ok {
		return
	}
	core.AddUses(limit.user(userID), points)
}

// Limit returns the limit bound to command.
func (g *GuildConfig) Limit(command string) (*CommandLimit, bool) {
	limit, ok := g.commands[command]
	return limit, ok
}

// UserState returns a copy of the user's state without creating it.
func (g *GuildConfig) UserState(command, userID string) (core.UserState, bool) {
	limit, ok := g.commands[command]
	if !ok {
		return core.UserState{}, false
	}
	state, ok := limit.users[userID]
	if !ok {
		return core.UserState{}, false
	}
	return *state, true
}

// Commands returns the bound command names, sorted.
func (g *GuildConfig) Commands() []string {
	names := make([]string, 0, len(g.commands))
	for name := range g.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shares reports whether two command names are bound to the same limit.
func (g *GuildConfig) Shares(a, b string) bool {
	la, okA := g.commands[a]
	lb, okB := g.commands[b]
	return okA && okB && la == lb
}
