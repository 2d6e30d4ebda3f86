package engine

import "errors"

var ErrInvalidConfig = errors.New("invalid config")
var ErrGameFull = errors.New("game full")
var ErrAlreadyJoined = errors.New("already joined")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNotFound = errors.New("not found")
var ErrOutOfBounds = errors.New("out of bounds")
var ErrIllegalMove = errors.New("illegal move")
var ErrGameOver = errors.New("game over")

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrGameFull, "GameFull"},
	{ErrAlreadyJoined, "AlreadyJoined"},
	{ErrNotYourTurn, "NotYourTurn"},
	{ErrNotFound, "NotFound"},
	{ErrOutOfBounds, "OutOfBounds"},
	{ErrIllegalMove, "IllegalMove"},
	{ErrGameOver, "GameOver"},
}

// Kind maps an engine error to its wire name. Unknown errors map to "Internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
