package mines

import (
	"math/rand/v2"
	"slices"
)

type State string

const (
	Playing State = "playing"
	Won     State = "won"
	Lost    State = "lost"
)

// CellID is the 1-based row-major position of a cell on the board.
type CellID int

type Cell struct {
	ID                CellID
	Mined             bool
	Flagged           bool
	Revealed          bool
	AdjacentMineCount int
}

// Game is an immutable snapshot of a board. Operations never modify the
// receiver; they return a new snapshot, or the receiver itself when the
// action is not allowed.
type Game struct {
	State     State
	Size      int
	Cells     []Cell
	Mined     bool
	MineCount int
}

// Create returns a fresh size×size game. Mines are placed lazily by the
// first Reveal or ToggleFlagged so that the first revealed cell is never a
// mine.
func Create(size, mineCount int) Game {
	cells := make([]Cell, max(size, 0)*max(size, 0))
	for i := range cells {
		cells[i] = Cell{ID: idxToCellID(i)}
	}
	return Game{
		State:     Playing,
		Size:      size,
		Cells:     cells,
		Mined:     false,
		MineCount: mineCount,
	}
}

// Reveal opens the cell with the given id. Mines are placed on the first
// action, excluding every revealed cell, and a cell without adjacent mines
// floods into its safe neighbourhood. r drives mine placement; a nil r falls
// back to the global source.
func (g Game) Reveal(id CellID, r *rand.Rand) (Game, error) {
	cell, err := g.Cell(id)
	if err != nil {
		return g, err
	}
	if g.State != Playing || cell.Revealed {
		return g, nil
	}

	next := g.clone()
	next.Cells[cellIDToIdx(id)].Revealed = true
	placeMines(&next, r)
	floodReveal(&next, id)
	updateState(&next)

	return next, nil
}

// ToggleFlagged flips the flag on an unrevealed cell. A new flag is refused
// once as many cells are flagged as there are mines; removing a flag is
// always allowed.
func (g Game) ToggleFlagged(id CellID, r *rand.Rand) (Game, error) {
	cell, err := g.Cell(id)
	if err != nil {
		return g, err
	}
	if g.State != Playing || cell.Revealed {
		return g, nil
	}
	if !cell.Flagged && g.allFlagsUsed() {
		return g, nil
	}

	next := g.clone()
	c := &next.Cells[cellIDToIdx(id)]
	c.Flagged = !c.Flagged
	placeMines(&next, r)
	updateState(&next)

	return next, nil
}

// Forfeit ends a running game as lost and discloses the board.
func (g Game) Forfeit(r *rand.Rand) Game {
	if g.State != Playing {
		return g
	}
	next := g.clone()
	placeMines(&next, r)
	next.State = Lost
	revealAll(&next)
	return next
}

func (g Game) Over() bool {
	return g.State != Playing
}

func (g Game) FlagCount() int {
	n := 0
	for _, c := range g.Cells {
		if c.Flagged {
			n++
		}
	}
	return n
}

// PlacedMines counts mined cells. It is below MineCount when the board had
// fewer unrevealed cells than requested mines at placement time.
func (g Game) PlacedMines() int {
	n := 0
	for _, c := range g.Cells {
		if c.Mined {
			n++
		}
	}
	return n
}

func (g Game) clone() Game {
	g.Cells = slices.Clone(g.Cells)
	return g
}
