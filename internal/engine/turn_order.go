package engine

// nextSeat finds the next non-eliminated seat after cur, wrapping. wrapped is
// true when the search passed the last seat, which closes a round.
func nextSeat(s State, cur int) (next int, wrapped bool) {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		i := (cur + step) % n
		if cur+step >= n {
			wrapped = true
		}
		if !s.Players[i].Eliminated {
			return i, wrapped
		}
	}
	return cur, wrapped
}

// eliminate knocks a player out and clears their pieces from the board.
func eliminate(s *State, id string) int {
	i := playerIndex(*s, id)
	if i < 0 {
		return 0
	}
	s.Players[i].Eliminated = true
	return removePieces(s, id)
}

// eliminateDisarmed knocks out every side that has lost all its warriors.
func eliminateDisarmed(s *State) int {
	removed := 0
	for _, p := range s.Players {
		if !p.Eliminated && countRole(*s, p.ID, RoleWarrior) == 0 {
			removed += eliminate(s, p.ID)
		}
	}
	return removed
}

// advanceTurn hands the turn to the next live seat, counting rounds. A player
// who starts a turn with no legal move while more than two sides remain is
// eliminated and skipped.
func advanceTurn(s *State, removed bool, nowMs int64) {
	for {
		cur := playerIndex(*s, *s.CurrentPlayerID)
		next, wrapped := nextSeat(*s, cur)

		s.TurnNumber++
		if wrapped {
			s.RoundNumber++
			if !removed {
				s.RoundsSinceElimination++
			}
		}
		s.CurrentPlayerID = ptr(s.Players[next].ID)
		s.TurnStartedAtMs = nowMs

		if !dropStalemated(s) {
			return
		}
		removed = true
	}
}

// dropStalemated eliminates the current player when they cannot move and more
// than two sides remain. The caller still has to advance the turn.
func dropStalemated(s *State) bool {
	id := *s.CurrentPlayerID
	if len(alivePlayers(*s)) <= 2 || hasLegalMove(*s, id) {
		return false
	}
	eliminate(s, id)
	s.RoundsSinceElimination = 0
	return true
}
