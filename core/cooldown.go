package core

import "math"

// Evaluate runs the cooldown state machine for one usage event at timestampMs.
// It mutates state unless inspectOnly is set, except for the retry flag on a
// cooldown hit, which is always recorded.
//
// Branch order matters: a permanent block wins over remaining uses, remaining
// uses win over window expiry, and window expiry wins over blocking. Uses and
// time are two gates and both must clear.
func Evaluate(p Policy, state *UserState, timestampMs int64, inspectOnly bool) Result {
	if p.Permanent() {
		triedAgain := state.RetriedWhileBlocked
		if !inspectOnly {
			state.RetriedWhileBlocked = true
		}
		return Result{Blocked: true, TriedAgain: triedAgain}
	}

	if state.UsesLeft > 0 {
		if !inspectOnly {
			state.UsesLeft--
			state.LastTimestamp = timestampMs
		}
		return Result{}
	}

	elapsed := ElapsedSeconds(state.LastTimestamp, timestampMs)
	if elapsed > float64(p.WindowSeconds) {
		if !inspectOnly {
			state.UsesLeft = p.AllowedUses - 1
			state.LastTimestamp = timestampMs
			state.RetriedWhileBlocked = false
		}
		return Result{}
	}

	triedAgain := state.RetriedWhileBlocked
	state.RetriedWhileBlocked = true
	return Result{
		CooldownHit: true,
		TriedAgain:  triedAgain,
		SecondsLeft: int64(math.Ceil(float64(p.WindowSeconds) - elapsed)),
	}
}

// ElapsedSeconds returns the fractional seconds between two unix ms stamps.
func ElapsedSeconds(fromMs, toMs int64) float64 {
	return float64(toMs-fromMs) / 1000
}

// ShiftSeconds moves the last timestamp by seconds. Negative values shorten
// an active cooldown.
func ShiftSeconds(state *UserState, seconds int64) {
	state.LastTimestamp += seconds * 1000
}

// AddUses adjusts the remaining uses without clamping.
func AddUses(state *UserState, points int) {
	state.UsesLeft += points
}
