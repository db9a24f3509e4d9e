package cooldown

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Registry holds one GuildConfig per guild. Guilds are only added through
// CreateConfig; lookups never create entries.
//
// Like GuildConfig, a Registry does no locking of its own.
type Registry struct {
	guilds map[string]*GuildConfig
	logger zerolog.Logger
	strict bool
}

// NewRegistry creates an empty registry.
//
// Example:
//
//	reg := NewRegistry(WithLogger(log.Logger))
//	guild, _ := reg.CreateConfig("g1", SpecFromMap(map[string]PolicyRecord{
//	    "ping": Limit(2, 10),
//	}), nil)
//	res, ok := guild.Evaluate("ping", "user-1", time.Now().UnixMilli(), false)
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		guilds: make(map[string]*GuildConfig),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateConfig builds the config for guildID from spec and registers it,
// replacing any previous one. When base is non-nil its bindings are copied
// first, by reference, so commands inherited from base share state with it.
//
// Entries are applied in order. A plain entry binds a new limit to its name.
// A group with members binds a limit to the group name and then either the
// same limit (glue) or a fresh limit with the same policy to every member.
// A group with no members binds nothing.
//
// In strict mode a spec with issues is rejected and nothing is registered.
func (r *Registry) CreateConfig(guildID string, spec ConfigSpec, base *GuildConfig) (*GuildConfig, error) {
	if err := r.Admit(guildID, spec); err != nil {
		return nil, err
	}

	log := r.logger.With().Str("guild_id", guildID).Logger()
	if !r.strict {
		for _, issue := range spec.Issues() {
			log.Warn().Err(issue).Msg("tolerating malformed cooldown entry")
		}
	}

	guild := newGuildConfig(guildID)
	if base != nil {
		for name, limit := range base.commands {
			guild.commands[name] = limit
		}
	}

	for _, e := range spec {
		rec := e.Record
		policy := rec.Policy()

		if !rec.IsGroup || len(rec.Commands) > 0 {
			guild.commands[e.Name] = newCommandLimit(policy)
		}
		if !rec.IsGroup {
			continue
		}

		for _, member := range rec.Commands {
			if rec.Glue {
				guild.commands[member] = guild.commands[e.Name]
			} else {
				guild.commands[member] = newCommandLimit(policy)
			}
		}
	}

	r.guilds[guildID] = guild

	inherited := 0
	if base != nil {
		inherited = len(base.commands)
	}
	log.Debug().
		Int("entries", len(spec)).
		Int("commands", len(guild.commands)).
		Int("inherited", inherited).
		Msg("guild cooldown config created")

	return guild, nil
}

// Admit returns the error CreateConfig would fail with for spec, without
// building or registering anything.
func (r *Registry) Admit(guildID string, spec ConfigSpec) error {
	if guildID == "" {
		return ErrEmptyGuildID
	}
	if !r.strict {
		return nil
	}
	if issues := spec.Issues(); len(issues) > 0 {
		return fmt.Errorf("guild %s: %w", guildID, issues[0])
	}
	return nil
}

// Get returns the config registered for guildID.
func (r *Registry) Get(guildID string) (*GuildConfig, bool) {
	guild, ok := r.guilds[guildID]
	return guild, ok
}

// Evaluate looks up the guild and evaluates the command. It reports false
// when either the guild or the command is not configured.
func (r *Registry) Evaluate(guildID, command, userID string, timestampMs int64, inspectOnly bool) (Result, bool) {
	guild, ok := r.guilds[guildID]
	if !ok {
		return Result{}, false
	}
	return guild.Evaluate(command, userID, timestampMs, inspectOnly)
}

// Remove drops the config for guildID and its state.
func (r *Registry) Remove(guildID string) bool {
	if _, ok := r.guilds[guildID]; !ok {
		return false
	}
	delete(r.guilds, guildID)
	r.logger.Debug().Str("guild_id", guildID).Msg("guild cooldown config removed")
	return true
}

// Reset drops every guild.
func (r *Registry) Reset() {
	r.guilds = make(map[string]*GuildConfig)
}

// Guilds returns the registered guild ids, sorted.
func (r *Registry) Guilds() []string {
	ids := make([]string, 0, len(r.guilds))
	for id := range r.guilds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered guilds.
func (r *Registry) Len() int {
	return len(r.guilds)
}
