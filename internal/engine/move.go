package engine

import (
	"fmt"
	"slices"
)

type movePatch struct {
	piece    int
	to       Hex
	captured []int
}

// validateMove runs every legality check for a move action without touching s.
func validateMove(s State, a Action) (movePatch, error) {
	switch s.Phase {
	case PhaseFinished:
		return movePatch{}, ErrGameOver
	case PhaseLobby:
		return movePatch{}, fmt.Errorf("%w: game has not started", ErrIllegalMove)
	}
	if playerIndex(s, a.PlayerID) < 0 {
		return movePatch{}, fmt.Errorf("%w: player %q", ErrNotFound, a.PlayerID)
	}
	if !isCurrent(s, a.PlayerID) {
		return movePatch{}, ErrNotYourTurn
	}

	pi := pieceIndex(s, a.PieceID)
	if pi < 0 {
		return movePatch{}, fmt.Errorf("%w: piece %q", ErrNotFound, a.PieceID)
	}
	piece := s.Pieces[pi]
	if piece.OwnerID != a.PlayerID {
		return movePatch{}, fmt.Errorf("%w: piece %q belongs to another player", ErrIllegalMove, a.PieceID)
	}

	if a.To == nil {
		return movePatch{}, fmt.Errorf("%w: move without target", ErrIllegalMove)
	}
	to := *a.To
	b := s.Board()
	if !b.Contains(to) {
		return movePatch{}, fmt.Errorf("%w: %s outside radius %d", ErrOutOfBounds, to, b.Radius)
	}
	if to == piece.Position {
		return movePatch{}, fmt.Errorf("%w: target equals origin", ErrIllegalMove)
	}

	occ := occupancyOf(s.Pieces)
	if err := checkPath(b, occ, piece, to); err != nil {
		return movePatch{}, err
	}

	moved := slices.Clone(s.Pieces)
	moved[pi].Position = to
	after := s
	after.Pieces = moved
	return movePatch{
		piece:    pi,
		to:       to,
		captured: captures(after, occupancyOf(moved), moved[pi], to),
	}, nil
}

// checkPath enforces straight-line sliding and the role restrictions.
func checkPath(b Board, occ Occupancy, piece Piece, to Hex) error {
	ok, err := b.PathClear(occ, piece.Position, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: path from %s to %s is blocked", ErrIllegalMove, piece.Position, to)
	}
	if _, taken := occ[to]; taken {
		return fmt.Errorf("%w: %s is occupied", ErrIllegalMove, to)
	}
	if to == Throne && piece.Role != RoleShield {
		return fmt.Errorf("%w: only shields may enter the throne", ErrIllegalMove)
	}
	return nil
}

// applyMove returns a copy of s with the patch applied and captured pieces
// removed. The returned count is the number of pieces taken off the board.
func applyMove(s State, p movePatch) (State, int) {
	next := clone(s)
	next.Pieces[p.piece].Position = p.to
	if len(p.captured) > 0 {
		drop := make(map[int]bool, len(p.captured))
		for _, i := range p.captured {
			drop[i] = true
		}
		kept := next.Pieces[:0]
		for i, pc := range next.Pieces {
			if !drop[i] {
				kept = append(kept, pc)
			}
		}
		next.Pieces = kept
	}
	return next, len(p.captured)
}

// LegalMoves lists every move available to a player. The result is empty when
// the player is stalemated.
func LegalMoves(s State, playerID string) []Action {
	b := s.Board()
	occ := occupancyOf(s.Pieces)
	var out []Action
	for _, pc := range s.Pieces {
		if pc.OwnerID != playerID {
			continue
		}
		for _, to := range reachable(b, occ, pc) {
			out = append(out, Move(playerID, pc.ID, to))
		}
	}
	return out
}

func hasLegalMove(s State, playerID string) bool {
	b := s.Board()
	occ := occupancyOf(s.Pieces)
	for _, pc := range s.Pieces {
		if pc.OwnerID == playerID && len(reachable(b, occ, pc)) > 0 {
			return true
		}
	}
	return false
}

func reachable(b Board, occ Occupancy, pc Piece) []Hex {
	var out []Hex
	for _, d := range Directions {
		for h := pc.Position.Add(d); b.Contains(h); h = h.Add(d) {
			if _, taken := occ[h]; taken {
				break
			}
			if h == Throne {
				if pc.Role == RoleShield {
					out = append(out, h)
				}
				break
			}
			out = append(out, h)
		}
	}
	return out
}
