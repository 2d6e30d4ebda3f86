package engine

import "fmt"

// Hex is an axial coordinate on the board. The implied third axis is s = -q-r.
type Hex struct {
	Q int `json:"q"`
	R int `json:"r"`
}

func (h Hex) S() int { return -h.Q - h.R }

func (h Hex) Add(o Hex) Hex { return Hex{Q: h.Q + o.Q, R: h.R + o.R} }

func (h Hex) Scale(k int) Hex { return Hex{Q: h.Q * k, R: h.R * k} }

func (h Hex) String() string { return fmt.Sprintf("(%d,%d)", h.Q, h.R) }

// Throne is the center cell.
var Throne = Hex{}

// Directions lists the six hex directions, counter-clockwise from east.
var Directions = [6]Hex{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Distance is the hex (cube) distance between two cells.
func Distance(a, b Hex) int {
	dq, dr := a.Q-b.Q, a.R-b.R
	ds := -dq - dr
	return max(abs(dq), abs(dr), abs(ds))
}

// Board describes the hexagonal play area of a given radius.
type Board struct {
	Radius int
}

func NewBoard(radius int) Board { return Board{Radius: radius} }

func (b Board) Contains(h Hex) bool { return Distance(h, Throne) <= b.Radius }

// CellCount is 3r(r+1)+1.
func (b Board) CellCount() int { return 3*b.Radius*(b.Radius+1) + 1 }

// Cells enumerates every legal coordinate sorted by (q, r).
func (b Board) Cells() []Hex {
	cells := make([]Hex, 0, b.CellCount())
	for q := -b.Radius; q <= b.Radius; q++ {
		for r := max(-b.Radius, -q-b.Radius); r <= min(b.Radius, -q+b.Radius); r++ {
			cells = append(cells, Hex{Q: q, R: r})
		}
	}
	return cells
}

// Corners returns the six corner cells in Directions order.
func (b Board) Corners() [6]Hex {
	var out [6]Hex
	for i, d := range Directions {
		out[i] = d.Scale(b.Radius)
	}
	return out
}

func (b Board) IsEdge(h Hex) bool { return Distance(h, Throne) == b.Radius }

func (b Board) check(h Hex) error {
	if !b.Contains(h) {
		return fmt.Errorf("%w: %s outside radius %d", ErrOutOfBounds, h, b.Radius)
	}
	return nil
}

// Neighbors returns the on-board cells adjacent to h.
func (b Board) Neighbors(h Hex) ([]Hex, error) {
	if err := b.check(h); err != nil {
		return nil, err
	}
	out := make([]Hex, 0, len(Directions))
	for _, d := range Directions {
		if n := h.Add(d); b.Contains(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (b Board) Adjacent(a, c Hex) (bool, error) {
	if err := b.check(a); err != nil {
		return false, err
	}
	if err := b.check(c); err != nil {
		return false, err
	}
	return Distance(a, c) == 1, nil
}

// direction reports the unit direction from a to c when both share an axis.
func direction(a, c Hex) (Hex, int, bool) {
	if a == c {
		return Hex{}, 0, false
	}
	dq, dr := c.Q-a.Q, c.R-a.R
	ds := -dq - dr
	if dq != 0 && dr != 0 && ds != 0 {
		return Hex{}, 0, false
	}
	n := max(abs(dq), abs(dr), abs(ds))
	return Hex{Q: dq / n, R: dr / n}, n, true
}

// Line returns the cells walked from `from` (exclusive) to `to` (inclusive)
// along a straight hex line.
func (b Board) Line(from, to Hex) ([]Hex, error) {
	if err := b.check(from); err != nil {
		return nil, err
	}
	if err := b.check(to); err != nil {
		return nil, err
	}
	dir, n, ok := direction(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s is not a straight line", ErrIllegalMove, from, to)
	}
	path := make([]Hex, 0, n)
	for i := 1; i <= n; i++ {
		path = append(path, from.Add(dir.Scale(i)))
	}
	return path, nil
}

// Occupancy indexes piece positions for constant-time lookup.
type Occupancy map[Hex]int

func occupancyOf(pieces []Piece) Occupancy {
	occ := make(Occupancy, len(pieces))
	for i, p := range pieces {
		occ[p.Position] = i
	}
	return occ
}

// PathClear reports whether every cell strictly before `to` on the line is empty
// and not the throne. The destination itself is checked by the caller.
func (b Board) PathClear(occ Occupancy, from, to Hex) (bool, error) {
	path, err := b.Line(from, to)
	if err != nil {
		return false, err
	}
	for _, h := range path[:len(path)-1] {
		if _, taken := occ[h]; taken || h == Throne {
			return false, nil
		}
	}
	return true, nil
}
