package engine

import (
	"fmt"
	"time"
)

// CreateGame validates cfg and returns a fresh game in the lobby phase.
func CreateGame(id string, cfg Config) (State, error) {
	if id == "" {
		return State{}, fmt.Errorf("%w: empty game id", ErrInvalidConfig)
	}
	if err := ValidateConfig(cfg); err != nil {
		return State{}, err
	}
	if cfg.TurnTimerMs != nil {
		cfg.TurnTimerMs = ptr(*cfg.TurnTimerMs)
	}
	return State{
		ID:      id,
		Phase:   PhaseLobby,
		Config:  cfg,
		Players: []Player{},
		Pieces:  []Piece{},
	}, nil
}

func ValidateConfig(cfg Config) error {
	switch {
	case cfg.PlayerCount < MinPlayers || cfg.PlayerCount > MaxPlayers:
		return fmt.Errorf("%w: playerCount must be %d..%d, got %d", ErrInvalidConfig, MinPlayers, MaxPlayers, cfg.PlayerCount)
	case cfg.BoardRadius < 1:
		return fmt.Errorf("%w: boardRadius must be positive, got %d", ErrInvalidConfig, cfg.BoardRadius)
	case cfg.ShieldCount < 1 || cfg.WarriorCount < 1:
		return fmt.Errorf("%w: shieldCount and warriorCount must be positive", ErrInvalidConfig)
	case cfg.TurnTimerMs != nil && *cfg.TurnTimerMs <= 0:
		return fmt.Errorf("%w: turnTimerMs must be positive or null", ErrInvalidConfig)
	case cfg.InactivityRounds < 0:
		return fmt.Errorf("%w: inactivityRounds must not be negative", ErrInvalidConfig)
	}
	need := cfg.PlayerCount * (cfg.ShieldCount + cfg.WarriorCount)
	if room := NewBoard(cfg.BoardRadius).CellCount() - 1; need > room {
		return fmt.Errorf("%w: %d pieces do not fit on radius %d (%d cells)", ErrInvalidConfig, need, cfg.BoardRadius, room)
	}
	return nil
}

// JoinGame seats a player. The join that fills the last seat starts the game.
func JoinGame(s State, playerID string, now time.Time) (State, error) {
	if playerID == "" {
		return s, fmt.Errorf("%w: empty player id", ErrNotFound)
	}
	if s.Phase == PhaseFinished {
		return s, ErrGameOver
	}
	if playerIndex(s, playerID) >= 0 {
		return s, fmt.Errorf("%w: %q", ErrAlreadyJoined, playerID)
	}
	if s.Phase != PhaseLobby || len(s.Players) >= s.Config.PlayerCount {
		return s, ErrGameFull
	}

	next := clone(s)
	next.Players = append(next.Players, Player{ID: playerID, Seat: len(s.Players), Connected: true})
	if len(next.Players) == next.Config.PlayerCount {
		start(&next, now)
	}
	return next, nil
}

func start(s *State, now time.Time) {
	s.Phase = PhaseActive
	s.Pieces = Place(s.Config, s.Players)
	s.CurrentPlayerID = ptr(s.Players[0].ID)
	s.TurnNumber = 1
	s.RoundNumber = 1
	s.RoundsSinceElimination = 0
	s.TurnStartedAtMs = now.UnixMilli()

	// A crowded board can leave the opening player without a move.
	if dropStalemated(s) {
		advanceTurn(s, true, now.UnixMilli())
	}
	if o := Evaluate(*s); o != nil {
		finish(s, *o)
	}
}

// SetConnected records a transport-level connection change for a player.
func SetConnected(s State, playerID string, connected bool) (State, error) {
	i := playerIndex(s, playerID)
	if i < 0 {
		return s, fmt.Errorf("%w: player %q", ErrNotFound, playerID)
	}
	next := clone(s)
	next.Players[i].Connected = connected
	return next, nil
}

// ApplyAction is the single mutation entry point. It validates a against s and
// returns the next snapshot; on error s is returned unchanged.
func ApplyAction(s State, a Action, now time.Time) (State, error) {
	switch a.Type {
	case ActionMove:
		return applyMoveAction(s, a, now)
	case ActionPass:
		if err := checkTurn(s, a.PlayerID); err != nil {
			return s, err
		}
		next := clone(s)
		next.Players[playerIndex(next, a.PlayerID)].MissedTurns = 0
		return endTurn(next, false, now), nil
	case ActionResign:
		return applyResign(s, a, now)
	case ActionTimerExpiry:
		return applyTimerExpiry(s, a, now)
	default:
		return s, fmt.Errorf("%w: unknown action %q", ErrIllegalMove, a.Type)
	}
}

func checkTurn(s State, playerID string) error {
	switch s.Phase {
	case PhaseFinished:
		return ErrGameOver
	case PhaseLobby:
		return fmt.Errorf("%w: game has not started", ErrIllegalMove)
	}
	if playerIndex(s, playerID) < 0 {
		return fmt.Errorf("%w: player %q", ErrNotFound, playerID)
	}
	if !isCurrent(s, playerID) {
		return ErrNotYourTurn
	}
	return nil
}

func applyMoveAction(s State, a Action, now time.Time) (State, error) {
	patch, err := validateMove(s, a)
	if err != nil {
		return s, err
	}
	next, captured := applyMove(s, patch)
	next.Players[playerIndex(next, a.PlayerID)].MissedTurns = 0

	removed := captured > 0
	if removed {
		eliminateDisarmed(&next)
		next.RoundsSinceElimination = 0
	}
	if o := firstOutcome(next, checkElimination, checkEscape); o != nil {
		finish(&next, *o)
		return next, nil
	}
	return endTurn(next, removed, now), nil
}

func applyResign(s State, a Action, now time.Time) (State, error) {
	if s.Phase == PhaseFinished {
		return s, ErrGameOver
	}
	if s.Phase == PhaseLobby {
		return s, fmt.Errorf("%w: game has not started", ErrIllegalMove)
	}
	i := playerIndex(s, a.PlayerID)
	if i < 0 {
		return s, fmt.Errorf("%w: player %q", ErrNotFound, a.PlayerID)
	}
	if s.Players[i].Eliminated {
		return s, fmt.Errorf("%w: player %q is already out", ErrIllegalMove, a.PlayerID)
	}

	next := clone(s)
	wasCurrent := isCurrent(next, a.PlayerID)
	if eliminate(&next, a.PlayerID) > 0 {
		next.RoundsSinceElimination = 0
	}
	if o := lastStanding(next, WinResignation); o != nil {
		finish(&next, *o)
		return next, nil
	}
	if !wasCurrent {
		if o := Evaluate(next); o != nil {
			finish(&next, *o)
		}
		return next, nil
	}
	return endTurn(next, true, now), nil
}

// applyTimerExpiry treats an expired turn as a forced pass. MaxMissedTurns
// consecutive expiries forfeit the game for that player.
func applyTimerExpiry(s State, a Action, now time.Time) (State, error) {
	if err := checkTurn(s, a.PlayerID); err != nil {
		return s, err
	}
	if s.Config.TurnTimerMs == nil {
		return s, fmt.Errorf("%w: game is untimed", ErrIllegalMove)
	}
	if !TimerExpired(s, now) {
		return s, fmt.Errorf("%w: turn timer has not expired", ErrIllegalMove)
	}

	next := clone(s)
	i := playerIndex(next, a.PlayerID)
	next.Players[i].MissedTurns++
	if next.Players[i].MissedTurns < MaxMissedTurns {
		return endTurn(next, false, now), nil
	}

	eliminate(&next, a.PlayerID)
	next.RoundsSinceElimination = 0
	if o := lastStanding(next, WinTimeout); o != nil {
		finish(&next, *o)
		return next, nil
	}
	return endTurn(next, true, now), nil
}

// endTurn advances to the next player and runs the win-condition evaluator.
func endTurn(s State, removed bool, now time.Time) State {
	advanceTurn(&s, removed, now.UnixMilli())
	if o := Evaluate(s); o != nil {
		finish(&s, *o)
	}
	return s
}
