package engine

import "time"

// TurnDeadline returns when the current turn's timer runs out. ok is false for
// untimed games and for games that are not active.
func TurnDeadline(s State) (deadline time.Time, ok bool) {
	if s.Phase != PhaseActive || s.Config.TurnTimerMs == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(s.TurnStartedAtMs + *s.Config.TurnTimerMs), true
}

// TimerExpired reports whether the current player has run out of time at now.
func TimerExpired(s State, now time.Time) bool {
	deadline, ok := TurnDeadline(s)
	return ok && !now.Before(deadline)
}
