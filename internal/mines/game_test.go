package mines

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// withMines builds a game whose mines are already placed at ids.
func withMines(size int, ids ...CellID) Game {
	g := Create(size, len(ids))
	for _, id := range ids {
		g.Cells[cellIDToIdx(id)].Mined = true
	}
	g.Mined = true
	updateAdjacentMineCounts(&g)
	return g
}

func liveAdjacentCount(g Game, id CellID) int {
	count := 0
	for _, c := range g.Cells {
		if c.Mined && g.isAdjacent(id, c.ID) {
			count++
		}
	}
	return count
}

func requireInvariants(t *testing.T, g Game) {
	t.Helper()
	require.Len(t, g.Cells, g.Size*g.Size)
	mined := 0
	for i, c := range g.Cells {
		require.Equal(t, idxToCellID(i), c.ID)
		if c.Mined {
			mined++
		}
		if g.Mined {
			require.Equal(t, liveAdjacentCount(g, c.ID), c.AdjacentMineCount, "cell %d", c.ID)
		} else {
			require.False(t, c.Mined)
			require.Zero(t, c.AdjacentMineCount)
		}
		if g.Over() {
			require.True(t, c.Revealed)
		}
	}
	if g.Mined {
		require.LessOrEqual(t, mined, g.MineCount)
	}
}

func revealedIDs(g Game) []CellID {
	var ids []CellID
	for _, c := range g.Cells {
		if c.Revealed {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func TestCreate(t *testing.T) {
	g := Create(4, 3)

	assert.Equal(t, Playing, g.State)
	assert.Equal(t, 4, g.Size)
	assert.Equal(t, 3, g.MineCount)
	assert.False(t, g.Mined)
	require.Len(t, g.Cells, 16)
	for i, c := range g.Cells {
		assert.Equal(t, Cell{ID: CellID(i + 1)}, c)
	}
}

func TestPosition(t *testing.T) {
	g := Create(3, 0)

	tests := []struct {
		id   CellID
		x, y int
	}{
		{1, 0, 0},
		{3, 2, 0},
		{4, 0, 1},
		{9, 2, 2},
	}
	for _, test := range tests {
		x, y := g.Position(test.id)
		assert.Equal(t, test.x, x, "x of %d", test.id)
		assert.Equal(t, test.y, y, "y of %d", test.id)

		id, err := g.CellAt(test.x, test.y)
		require.NoError(t, err)
		assert.Equal(t, test.id, id)
	}

	_, err := g.CellAt(3, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = g.CellAt(0, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNeighbours(t *testing.T) {
	g := Create(3, 0)

	assert.ElementsMatch(t, []CellID{2, 4, 5}, g.neighbours(1))
	assert.ElementsMatch(t, []CellID{1, 2, 3, 4, 6, 7, 8, 9}, g.neighbours(5))
	assert.ElementsMatch(t, []CellID{5, 6, 8}, g.neighbours(9))
	assert.ElementsMatch(t, []CellID{1, 3, 4, 5, 6}, g.neighbours(2))
	assert.Empty(t, Create(1, 0).neighbours(1))
}

func TestOutOfRange(t *testing.T) {
	g := Create(2, 1)
	r := newRand()

	for _, id := range []CellID{0, -1, 5, 100} {
		next, err := g.Reveal(id, r)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.Equal(t, g, next)

		next, err = g.ToggleFlagged(id, r)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.Equal(t, g, next)
	}
}

func TestFirstRevealNeverLoses(t *testing.T) {
	r := newRand()
	for size := 1; size <= 6; size++ {
		for mineCount := 0; mineCount < size*size; mineCount++ {
			for i := range size * size {
				id := idxToCellID(i)
				g, err := Create(size, mineCount).Reveal(id, r)
				require.NoError(t, err)
				require.NotEqual(t, Lost, g.State, "size %d mines %d id %d", size, mineCount, id)
				require.True(t, g.Mined)
				requireInvariants(t, g)
			}
		}
	}
}

func TestPlacementCount(t *testing.T) {
	r := newRand()
	g, err := Create(9, 10).Reveal(41, r)
	require.NoError(t, err)

	mined := 0
	for _, c := range g.Cells {
		if c.Mined {
			mined++
		}
	}
	assert.Equal(t, 10, mined)
	requireInvariants(t, g)
}

func TestPlacementIsSeedable(t *testing.T) {
	a, err := Create(8, 12).Reveal(1, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	b, err := Create(8, 12).Reveal(1, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPlacementSkipsRevealed(t *testing.T) {
	g := Create(3, 8)
	g.Cells[0].Revealed = true
	g.Cells[4].Revealed = true

	placeMines(&g, newRand())

	assert.True(t, g.Mined)
	assert.False(t, g.Cells[0].Mined)
	assert.False(t, g.Cells[4].Mined)
	mined := 0
	for _, c := range g.Cells {
		if c.Mined {
			mined++
		}
	}
	assert.Equal(t, 7, mined, "only unrevealed cells may hold mines")
}

func TestPlacementIsIdempotent(t *testing.T) {
	g := withMines(3, 9)
	before := slices.Clone(g.Cells)

	placeMines(&g, newRand())

	assert.Equal(t, before, g.Cells)
}

func TestMoreMinesThanCells(t *testing.T) {
	g, err := Create(2, 10).Reveal(1, newRand())
	require.NoError(t, err)

	mined := 0
	for _, c := range g.Cells {
		if c.Mined {
			mined++
		}
	}
	assert.Equal(t, 3, mined)
	assert.Equal(t, 3, g.PlacedMines())
	assert.Equal(t, 0, Create(2, 10).PlacedMines())
	assert.False(t, g.Cells[0].Mined)
	assert.Equal(t, Won, g.State)
}

func TestRevealDoesNotMutateInput(t *testing.T) {
	g := withMines(4, 16)
	before := slices.Clone(g.Cells)

	next, err := g.Reveal(11, newRand())
	require.NoError(t, err)
	require.Equal(t, Playing, next.State)

	assert.Equal(t, before, g.Cells)
	assert.NotEqual(t, g.Cells, next.Cells)

	flagged, err := next.ToggleFlagged(16, newRand())
	require.NoError(t, err)
	assert.False(t, next.Cells[15].Flagged)
	assert.True(t, flagged.Cells[15].Flagged)
}

func TestNoOps(t *testing.T) {
	r := newRand()
	g := withMines(4, 16)
	g, err := g.Reveal(11, r)
	require.NoError(t, err)
	require.Equal(t, Playing, g.State)

	t.Run("reveal revealed cell", func(t *testing.T) {
		next, err := g.Reveal(11, r)
		require.NoError(t, err)
		assert.Equal(t, g, next)
	})

	t.Run("flag revealed cell", func(t *testing.T) {
		next, err := g.ToggleFlagged(11, r)
		require.NoError(t, err)
		assert.Equal(t, g, next)
	})

	t.Run("terminal game", func(t *testing.T) {
		lost, err := g.Reveal(16, r)
		require.NoError(t, err)
		require.Equal(t, Lost, lost.State)

		next, err := lost.Reveal(1, r)
		require.NoError(t, err)
		assert.Equal(t, lost, next)

		next, err = lost.ToggleFlagged(1, r)
		require.NoError(t, err)
		assert.Equal(t, lost, next)

		assert.Equal(t, lost, lost.Forfeit(r))
	})
}

func TestFloodRevealCorner(t *testing.T) {
	g := withMines(3, 9)

	g, err := g.Reveal(1, newRand())
	require.NoError(t, err)

	// every safe cell is reachable from 1, so the flood wins the game
	assert.Equal(t, Won, g.State)
	assert.Len(t, revealedIDs(g), 9)
	requireInvariants(t, g)
}

func TestFloodRevealStopsAtBorder(t *testing.T) {
	// a wall of mines down the middle column of a 5x5 board
	g := withMines(5, 3, 8, 13, 18, 23)

	g, err := g.Reveal(1, newRand())
	require.NoError(t, err)

	assert.Equal(t, Playing, g.State)
	assert.ElementsMatch(t,
		[]CellID{1, 2, 6, 7, 11, 12, 16, 17, 21, 22},
		revealedIDs(g),
	)
	requireInvariants(t, g)
}

func TestFloodRevealNumberedCellDoesNotSpread(t *testing.T) {
	g := withMines(3, 9)

	g, err := g.Reveal(5, newRand())
	require.NoError(t, err)

	assert.Equal(t, Playing, g.State)
	assert.Equal(t, []CellID{5}, revealedIDs(g))
}

func TestFloodRevealLargeBoard(t *testing.T) {
	g := withMines(200, 40000)

	g, err := g.Reveal(1, newRand())
	require.NoError(t, err)

	assert.Equal(t, Won, g.State)
}

func TestWinByFullDisclosure(t *testing.T) {
	g, err := Create(2, 0).Reveal(1, newRand())
	require.NoError(t, err)

	assert.Equal(t, Won, g.State)
	assert.Len(t, revealedIDs(g), 4)
}

func TestWinByFlagging(t *testing.T) {
	r := newRand()
	g, err := Create(2, 1).ToggleFlagged(1, r)
	require.NoError(t, err)
	require.True(t, g.Mined)

	if g.State != Won {
		require.Equal(t, Playing, g.State)
		g, err = g.ToggleFlagged(1, r)
		require.NoError(t, err)
		require.False(t, g.Cells[0].Flagged)

		var mine CellID
		for _, c := range g.Cells {
			if c.Mined {
				mine = c.ID
			}
		}
		g, err = g.ToggleFlagged(mine, r)
		require.NoError(t, err)
	}

	assert.Equal(t, Won, g.State)
	assert.Len(t, revealedIDs(g), 4)
}

func TestLoss(t *testing.T) {
	g := withMines(3, 2, 9)

	g, err := g.Reveal(9, newRand())
	require.NoError(t, err)

	assert.Equal(t, Lost, g.State)
	assert.Len(t, revealedIDs(g), 9)
	requireInvariants(t, g)
}

func TestFlagBudget(t *testing.T) {
	r := newRand()
	g := withMines(3, 1, 2)

	g, err := g.ToggleFlagged(5, r)
	require.NoError(t, err)
	g, err = g.ToggleFlagged(6, r)
	require.NoError(t, err)
	require.Equal(t, 2, g.FlagCount())

	atBudget, err := g.ToggleFlagged(7, r)
	require.NoError(t, err)
	assert.Equal(t, g, atBudget, "no new flag beyond the mine count")

	unflagged, err := g.ToggleFlagged(6, r)
	require.NoError(t, err)
	assert.Equal(t, 1, unflagged.FlagCount())
	assert.False(t, unflagged.Cells[5].Flagged)

	reflagged, err := unflagged.ToggleFlagged(7, r)
	require.NoError(t, err)
	assert.Equal(t, 2, reflagged.FlagCount())
}

func TestFlagBudgetNeverExceeded(t *testing.T) {
	r := newRand()
	g := Create(5, 4)
	for i := range 25 {
		var err error
		g, err = g.ToggleFlagged(idxToCellID(i), r)
		require.NoError(t, err)
		if g.Over() {
			break
		}
		require.LessOrEqual(t, g.FlagCount(), 4)
	}
}

func TestFlagBeforeRevealPlacesMines(t *testing.T) {
	g, err := Create(4, 3).ToggleFlagged(6, newRand())
	require.NoError(t, err)

	assert.True(t, g.Mined)
	assert.True(t, g.Cells[5].Flagged)
	requireInvariants(t, g)
}

func TestForfeit(t *testing.T) {
	g := Create(4, 3).Forfeit(newRand())

	assert.Equal(t, Lost, g.State)
	assert.True(t, g.Mined)
	assert.Len(t, revealedIDs(g), 16)
	requireInvariants(t, g)
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	r := newRand()
	for range 50 {
		size := 2 + r.IntN(7)
		g := Create(size, r.IntN(size*size))
		for !g.Over() {
			id := idxToCellID(r.IntN(size * size))
			var err error
			if r.IntN(4) == 0 {
				g, err = g.ToggleFlagged(id, r)
			} else {
				g, err = g.Reveal(id, r)
			}
			require.NoError(t, err)
			requireInvariants(t, g)
		}
	}
}

func TestEncoding(t *testing.T) {
	g, err := Create(5, 5).Reveal(13, newRand())
	require.NoError(t, err)

	b, err := g.Bytes()
	require.NoError(t, err)
	decoded, err := DecodeGame(b)
	require.NoError(t, err)

	assert.Equal(t, g, decoded)
}

func TestString(t *testing.T) {
	g := withMines(2, 4)
	g, err := g.ToggleFlagged(2, newRand())
	require.NoError(t, err)
	g, err = g.Reveal(1, newRand())
	require.NoError(t, err)

	assert.Equal(t, "1 F\n. .\n", g.String())
}
