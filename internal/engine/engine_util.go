package engine

import "slices"

func ptr[T any](v T) *T { return &v }

// clone deep-copies everything a transition may touch.
func clone(s State) State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Pieces = slices.Clone(s.Pieces)
	if s.Config.TurnTimerMs != nil {
		c.Config.TurnTimerMs = ptr(*s.Config.TurnTimerMs)
	}
	if s.CurrentPlayerID != nil {
		c.CurrentPlayerID = ptr(*s.CurrentPlayerID)
	}
	if s.WinnerID != nil {
		c.WinnerID = ptr(*s.WinnerID)
	}
	if s.WinCondition != nil {
		c.WinCondition = ptr(*s.WinCondition)
	}
	return c
}

func playerIndex(s State, id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func pieceIndex(s State, id string) int {
	return slices.IndexFunc(s.Pieces, func(p Piece) bool { return p.ID == id })
}

func isCurrent(s State, id string) bool {
	return s.CurrentPlayerID != nil && *s.CurrentPlayerID == id
}

func countRole(s State, owner string, role Role) int {
	n := 0
	for _, p := range s.Pieces {
		if p.OwnerID == owner && p.Role == role {
			n++
		}
	}
	return n
}

// alivePlayers returns the ids of non-eliminated players in seat order.
func alivePlayers(s State) []string {
	var ids []string
	for _, p := range s.Players {
		if !p.Eliminated {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// removePieces drops every piece owned by owner and reports how many went.
func removePieces(s *State, owner string) int {
	before := len(s.Pieces)
	s.Pieces = slices.DeleteFunc(s.Pieces, func(p Piece) bool { return p.OwnerID == owner })
	return before - len(s.Pieces)
}

// PiecesOf returns the living pieces owned by a player.
func PiecesOf(s State, owner string) []Piece {
	var out []Piece
	for _, p := range s.Pieces {
		if p.OwnerID == owner {
			out = append(out, p)
		}
	}
	return out
}

// PieceAt returns the piece occupying h, if any.
func PieceAt(s State, h Hex) (Piece, bool) {
	for _, p := range s.Pieces {
		if p.Position == h {
			return p, true
		}
	}
	return Piece{}, false
}
