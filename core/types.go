package core

import "time"

// PermanentWindow is the window value that, paired with zero allowed uses,
// disables a command for everyone.
const PermanentWindow = -1

// Policy defines how often a command may be used
type Policy struct {
	AllowedUses   int // Uses permitted per window
	WindowSeconds int // Window length in seconds (-1 with 0 uses = blocked forever)
}

// Permanent reports whether the policy blocks the command for good.
func (p Policy) Permanent() bool {
	return p.AllowedUses == 0 && p.WindowSeconds == PermanentWindow
}

// UserState is the per-user record kept under a command
type UserState struct {
	UserID              string `json:"user_id"`
	UsesLeft            int    `json:"uses_left"`             // Remaining uses in the current window
	LastTimestamp       int64  `json:"last_timestamp"`        // Unix ms of the last consumed or replenished use
	RetriedWhileBlocked bool   `json:"retried_while_blocked"` // Set when the user tried again while denied
}

// NewUserState returns a fresh state at full allowance. LastTimestamp stays 0.
func NewUserState(userID string, p Policy) *UserState {
	return &UserState{
		UserID:   userID,
		UsesLeft: p.AllowedUses,
	}
}

// Result is the outcome of a single evaluation
type Result struct {
	Blocked     bool  `json:"blocked"`                // Command is permanently disabled
	CooldownHit bool  `json:"cooldown_hit"`           // User is inside the cooldown window with no uses left
	TriedAgain  bool  `json:"tried_again"`            // User had already been denied before this call
	SecondsLeft int64 `json:"seconds_left,omitempty"` // Seconds until the window reopens (cooldown only)
}

// Outcome labels used by hosts for logs and metrics.
const (
	OutcomeAllowed  = "allowed"
	OutcomeCooldown = "cooldown"
	OutcomeBlocked  = "blocked"
)

// Allowed reports whether the use went through.
func (r Result) Allowed() bool {
	return !r.Blocked && !r.CooldownHit
}

// Outcome returns one of the Outcome* labels.
func (r Result) Outcome() string {
	switch {
	case r.Blocked:
		return OutcomeBlocked
	case r.CooldownHit:
		return OutcomeCooldown
	default:
		return OutcomeAllowed
	}
}

// RetryAfterSeconds is the value for a Retry-After header: SecondsLeft, but
// never below 1 while on cooldown. Zero unless on cooldown.
func (r Result) RetryAfterSeconds() int64 {
	if !r.CooldownHit {
		return 0
	}
	return max(r.SecondsLeft, 1)
}

// RetryAfter is RetryAfterSeconds as a duration.
func (r Result) RetryAfter() time.Duration {
	return time.Duration(r.RetryAfterSeconds()) * time.Second
}
