// Package cooldown tracks per-user, per-command cooldowns for chat bots that
// serve many guilds.
//
// Each guild gets its own GuildConfig mapping command names to a
// CommandLimit (uses per window, window length) and, lazily, to the state of
// every user who ran that command. Guilds never share state unless a config
// is explicitly built on top of another one.
//
// # Quick Start
//
//	reg := cooldown.NewRegistry()
//	guild, _ := reg.CreateConfig("guild-1", cooldown.SpecFromMap(map[string]cooldown.PolicyRecord{
//	    "ping": cooldown.Limit(2, 10), // 2 uses every 10 seconds
//	}), nil)
//
//	res, ok := guild.Evaluate("ping", "user-1", time.Now().UnixMilli(), false)
//	switch {
//	case !ok:
//	    // command not configured, no restriction
//	case res.Blocked:
//	    // disabled for everyone
//	case res.CooldownHit && !res.TriedAgain:
//	    fmt.Printf("wait %ds\n", res.SecondsLeft)
//	}
//
// # Groups
//
// A group entry gives several commands the same policy:
//
//	fun:
//	  isGroup: true
//	  uses: 1
//	  coolTime: 60
//	  commands: [cat, dog]
//
// With glue: true every member is bound to one shared limit, so running cat
// also uses up dog. Without glue each member keeps its own allowance.
//
// # Special values
//
// uses: 0 together with coolTime: -1 disables a command permanently.
// Missing fields default to uses: 1 and coolTime: 30.
//
// # Concurrency
//
// Nothing in this package locks. Hosts that evaluate from several goroutines
// serialise per guild (see the middleware package).
package cooldown
