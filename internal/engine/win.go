package engine

type check func(State) *Outcome

// Evaluate reports the terminal result of an active state, or nil while play
// continues. Conditions are checked in priority order and the first match wins.
func Evaluate(s State) *Outcome {
	if s.Phase != PhaseActive {
		return nil
	}
	return firstOutcome(s, checkElimination, checkEscape, checkStalemate, checkInactivity)
}

func firstOutcome(s State, checks ...check) *Outcome {
	for _, c := range checks {
		if o := c(s); o != nil {
			return o
		}
	}
	return nil
}

// checkElimination: one side still holding warriors wins; none is a draw.
func checkElimination(s State) *Outcome {
	var armed []string
	for _, p := range s.Players {
		if !p.Eliminated && countRole(s, p.ID, RoleWarrior) > 0 {
			armed = append(armed, p.ID)
		}
	}
	switch len(armed) {
	case 0:
		return &Outcome{Condition: WinElimination}
	case 1:
		return &Outcome{WinnerID: ptr(armed[0]), Condition: WinElimination}
	}
	return nil
}

// checkEscape: a shield standing on the throne wins for its owner.
func checkEscape(s State) *Outcome {
	pc, ok := PieceAt(s, Throne)
	if !ok || pc.Role != RoleShield {
		return nil
	}
	return &Outcome{WinnerID: ptr(pc.OwnerID), Condition: WinEscape}
}

// checkStalemate: with two sides left, a current player without a legal move
// loses to the other.
func checkStalemate(s State) *Outcome {
	if s.CurrentPlayerID == nil {
		return nil
	}
	alive := alivePlayers(s)
	if len(alive) != 2 || hasLegalMove(s, *s.CurrentPlayerID) {
		return nil
	}
	for _, id := range alive {
		if id != *s.CurrentPlayerID {
			return &Outcome{WinnerID: ptr(id), Condition: WinStalemate}
		}
	}
	return nil
}

func checkInactivity(s State) *Outcome {
	if s.RoundsSinceElimination >= s.inactivityLimit() {
		return &Outcome{Condition: WinInactivity}
	}
	return nil
}

// lastStanding is used by resignations and forfeits, whose outcome carries the
// cause rather than elimination.
func lastStanding(s State, cond WinCondition) *Outcome {
	alive := alivePlayers(s)
	switch len(alive) {
	case 0:
		return &Outcome{Condition: cond}
	case 1:
		return &Outcome{WinnerID: ptr(alive[0]), Condition: cond}
	}
	return nil
}

func finish(s *State, o Outcome) {
	s.Phase = PhaseFinished
	s.WinnerID = o.WinnerID
	s.WinCondition = ptr(o.Condition)
	s.CurrentPlayerID = nil
	s.TurnStartedAtMs = 0
}
