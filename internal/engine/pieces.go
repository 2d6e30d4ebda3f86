package engine

import (
	"fmt"
	"sort"
)

// homeCorner picks the starting corner for a seat so sides spread evenly.
func homeCorner(b Board, seat, players int) Hex {
	return b.Corners()[seat*len(Directions)/players]
}

// Place lays out the starting pieces for the seated players. Seats take turns
// claiming the free cell nearest their home corner (ties: farther from the
// throne first, then q, then r). Each seat's first ShieldCount claims are
// shields, so shields start behind a screen of warriors.
func Place(cfg Config, players []Player) []Piece {
	b := NewBoard(cfg.BoardRadius)
	cells := b.Cells()

	order := make([][]Hex, len(players))
	for i := range players {
		corner := homeCorner(b, i, len(players))
		ranked := make([]Hex, 0, len(cells)-1)
		for _, c := range cells {
			if c != Throne {
				ranked = append(ranked, c)
			}
		}
		sort.SliceStable(ranked, func(a, z int) bool {
			da, dz := Distance(ranked[a], corner), Distance(ranked[z], corner)
			if da != dz {
				return da < dz
			}
			ta, tz := Distance(ranked[a], Throne), Distance(ranked[z], Throne)
			if ta != tz {
				return ta > tz
			}
			if ranked[a].Q != ranked[z].Q {
				return ranked[a].Q < ranked[z].Q
			}
			return ranked[a].R < ranked[z].R
		})
		order[i] = ranked
	}

	taken := make(map[Hex]bool)
	cursor := make([]int, len(players))
	perSide := cfg.ShieldCount + cfg.WarriorCount
	pieces := make([]Piece, 0, perSide*len(players))

	for n := 0; n < perSide; n++ {
		for i, pl := range players {
			for taken[order[i][cursor[i]]] {
				cursor[i]++
			}
			h := order[i][cursor[i]]
			taken[h] = true

			role, idx := RoleShield, n
			if n >= cfg.ShieldCount {
				role, idx = RoleWarrior, n-cfg.ShieldCount
			}
			pieces = append(pieces, Piece{
				ID:       pieceID(pl.Seat, role, idx),
				OwnerID:  pl.ID,
				Role:     role,
				Position: h,
			})
		}
	}
	return pieces
}

func pieceID(seat int, role Role, n int) string {
	tag := "w"
	if role == RoleShield {
		tag = "s"
	}
	return fmt.Sprintf("%d-%s%d", seat, tag, n)
}

// captures returns the indexes of pieces taken by the piece that just landed on
// `at`. Only warriors capture: an enemy on a neighbouring cell is taken when the
// cell beyond it, on the same line, holds one of the mover's pieces or is the
// empty throne.
func captures(s State, occ Occupancy, mover Piece, at Hex) []int {
	if mover.Role != RoleWarrior {
		return nil
	}
	b := s.Board()
	var out []int
	for _, d := range Directions {
		victimAt := at.Add(d)
		vi, ok := occ[victimAt]
		if !ok || s.Pieces[vi].OwnerID == mover.OwnerID {
			continue
		}
		anchor := victimAt.Add(d)
		if !b.Contains(anchor) {
			continue
		}
		ai, occupied := occ[anchor]
		switch {
		case occupied && s.Pieces[ai].OwnerID == mover.OwnerID:
			out = append(out, vi)
		case !occupied && anchor == Throne:
			out = append(out, vi)
		}
	}
	sort.Ints(out)
	return out
}
