package mines

import (
	"fmt"
	"strconv"
	"strings"
)

func cellIDToIdx(id CellID) int {
	return int(id) - 1
}

func idxToCellID(idx int) CellID {
	return CellID(idx + 1)
}

func (g Game) contains(id CellID) bool {
	return 1 <= id && int(id) <= len(g.Cells)
}

// Cell returns the cell with the given id.
func (g Game) Cell(id CellID) (Cell, error) {
	if !g.contains(id) {
		return Cell{}, fmt.Errorf(
			"%w: cell %d not in 1..%d", ErrOutOfRange, id, len(g.Cells),
		)
	}
	return g.Cells[cellIDToIdx(id)], nil
}

// Position maps an id to its zero-based column and row.
func (g Game) Position(id CellID) (x, y int) {
	idx := cellIDToIdx(id)
	return idx % g.Size, idx / g.Size
}

// CellAt maps a zero-based column and row to a cell id.
func (g Game) CellAt(x, y int) (CellID, error) {
	if x < 0 || x >= g.Size || y < 0 || y >= g.Size {
		return 0, fmt.Errorf(
			"%w: position %d:%d not on a %dx%d board",
			ErrOutOfRange, x, y, g.Size, g.Size,
		)
	}
	return idxToCellID(y*g.Size + x), nil
}

func (g Game) isAdjacent(a, b CellID) bool {
	if a == b {
		return false
	}
	x1, y1 := g.Position(a)
	x2, y2 := g.Position(b)
	return absDiff(x1, x2) < 2 && absDiff(y1, y2) < 2
}

// neighbours lists the up to eight cells adjacent to id.
func (g Game) neighbours(id CellID) []CellID {
	x, y := g.Position(id)
	out := make([]CellID, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			xx, yy := x+dx, y+dy
			if xx < 0 || xx >= g.Size || yy < 0 || yy >= g.Size {
				continue
			}
			n := idxToCellID(yy*g.Size + xx)
			if g.isAdjacent(id, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func (c Cell) String() string {
	switch {
	case c.Revealed && c.Mined:
		return "*"
	case c.Revealed:
		return strconv.Itoa(c.AdjacentMineCount)
	case c.Flagged:
		return "F"
	default:
		return "."
	}
}

// String renders the board one row per line, as the player sees it.
func (g Game) String() string {
	var b strings.Builder
	for y := range g.Size {
		for x := range g.Size {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(g.Cells[y*g.Size+x].String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
