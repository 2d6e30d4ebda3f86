package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// ErrBadRequest marks messages that never reach the engine.
var ErrBadRequest = errors.New("bad request")

// ClientMessage is an action sent over the websocket or POSTed to /actions.
type ClientMessage struct {
	Type     string      `json:"type" validate:"required,oneof=move pass resign timerExpiry"`
	PlayerID string      `json:"playerId,omitempty" validate:"max=64"`
	PieceID  string      `json:"pieceId,omitempty" validate:"required_if=Type move"`
	To       *engine.Hex `json:"to,omitempty" validate:"required_if=Type move"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"` // error kind, e.g. "NotYourTurn"
	Message string        `json:"message,omitempty"`
}

// JoinRequest is the body of POST /games/{id}/players.
type JoinRequest struct {
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

var validate = validator.New()

func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// ToAction validates m and converts it. A connection bound to a player fills an
// empty playerId and rejects any other.
func ToAction(m ClientMessage, boundPlayer string) (engine.Action, error) {
	if err := Validate(m); err != nil {
		return engine.Action{}, err
	}
	playerID := m.PlayerID
	switch {
	case boundPlayer == "":
	case playerID == "":
		playerID = boundPlayer
	case playerID != boundPlayer:
		return engine.Action{}, fmt.Errorf("%w: connection is bound to player %q", ErrBadRequest, boundPlayer)
	}
	if playerID == "" {
		return engine.Action{}, fmt.Errorf("%w: playerId is required", ErrBadRequest)
	}
	return engine.Action{
		Type:     engine.ActionType(m.Type),
		PlayerID: playerID,
		PieceID:  m.PieceID,
		To:       m.To,
	}, nil
}

func Snapshot(version int, s engine.State) ServerMessage {
	return ServerMessage{Type: "StateSnapshot", Version: version, State: &s}
}

// Kind extends engine.Kind with transport-level failures.
func Kind(err error) string {
	if errors.Is(err, ErrBadRequest) {
		return "BadRequest"
	}
	return engine.Kind(err)
}

func Error(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: Kind(err), Message: err.Error()}
}
