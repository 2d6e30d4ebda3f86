package engine

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

type Role string

const (
	RoleShield  Role = "shield"
	RoleWarrior Role = "warrior"
)

type WinCondition string

const (
	WinElimination WinCondition = "elimination"
	WinEscape      WinCondition = "escape"
	WinStalemate   WinCondition = "stalemate"
	WinInactivity  WinCondition = "inactivity"
	WinResignation WinCondition = "resignation"
	WinTimeout     WinCondition = "timeout"
)

const (
	MinPlayers = 2
	MaxPlayers = 6

	DefaultInactivityRounds = 20
	// MaxMissedTurns consecutive timer expiries forfeit the game for that player.
	MaxMissedTurns = 3
)

type Config struct {
	PlayerCount      int    `json:"playerCount"`
	BoardRadius      int    `json:"boardRadius"`
	ShieldCount      int    `json:"shieldCount"`
	WarriorCount     int    `json:"warriorCount"`
	TurnTimerMs      *int64 `json:"turnTimerMs"`
	InactivityRounds int    `json:"inactivityRounds"`
}

type Player struct {
	ID          string `json:"id"`
	Seat        int    `json:"seat"`
	Connected   bool   `json:"connected"`
	Eliminated  bool   `json:"eliminated"`
	MissedTurns int    `json:"missedTurns"`
}

type Piece struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	Role     Role   `json:"role"`
	Position Hex    `json:"position"`
}

// State is the aggregate game snapshot exchanged with clients. The engine never
// mutates a State it was handed; every accepted action returns a fresh copy.
type State struct {
	ID                     string        `json:"id"`
	Phase                  Phase         `json:"phase"`
	Config                 Config        `json:"config"`
	Players                []Player      `json:"players"`
	Pieces                 []Piece       `json:"pieces"`
	CurrentPlayerID        *string       `json:"currentPlayerId"`
	TurnNumber             int           `json:"turnNumber"`
	RoundNumber            int           `json:"roundNumber"`
	RoundsSinceElimination int           `json:"roundsSinceElimination"`
	WinnerID               *string       `json:"winnerId"`
	WinCondition           *WinCondition `json:"winCondition"`
	TurnStartedAtMs        int64         `json:"turnStartedAtMs"`
}

type ActionType string

const (
	ActionMove        ActionType = "move"
	ActionPass        ActionType = "pass"
	ActionResign      ActionType = "resign"
	ActionTimerExpiry ActionType = "timerExpiry"
)

// Action is the closed set of client-submitted commands.
type Action struct {
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`
	PieceID  string     `json:"pieceId,omitempty"`
	To       *Hex       `json:"to,omitempty"`
}

func Move(playerID, pieceID string, to Hex) Action {
	return Action{Type: ActionMove, PlayerID: playerID, PieceID: pieceID, To: &to}
}

func Pass(playerID string) Action { return Action{Type: ActionPass, PlayerID: playerID} }

func Resign(playerID string) Action { return Action{Type: ActionResign, PlayerID: playerID} }

func TimerExpiry(playerID string) Action {
	return Action{Type: ActionTimerExpiry, PlayerID: playerID}
}

// Outcome is a terminal result. A nil WinnerID is a draw.
type Outcome struct {
	WinnerID  *string
	Condition WinCondition
}

func (s State) Board() Board { return NewBoard(s.Config.BoardRadius) }

func (s State) inactivityLimit() int {
	if s.Config.InactivityRounds > 0 {
		return s.Config.InactivityRounds
	}
	return DefaultInactivityRounds
}
