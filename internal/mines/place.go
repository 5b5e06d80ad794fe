package mines

import "math/rand/v2"

// placeMines picks MineCount distinct unrevealed cells at random. When fewer
// unrevealed cells remain, every one of them becomes a mine. Placement
// happens once per game; PlacedMines reports how many were actually placed.
func placeMines(g *Game, r *rand.Rand) {
	if g.Mined {
		return
	}

	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}

	candidates := make([]CellID, 0, len(g.Cells))
	for _, c := range g.Cells {
		if !c.Revealed {
			candidates = append(candidates, c.ID)
		}
	}

	/*
	 * Partial Fisher-Yates: the first n slots end up holding a uniform
	 * sample without replacement.
	 */
	n := min(g.MineCount, len(candidates))
	for i := range n {
		j := i + intN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
		g.Cells[cellIDToIdx(candidates[i])].Mined = true
	}

	g.Mined = true
	updateAdjacentMineCounts(g)
}

func updateAdjacentMineCounts(g *Game) {
	for i := range g.Cells {
		count := 0
		for _, n := range g.neighbours(g.Cells[i].ID) {
			if g.Cells[cellIDToIdx(n)].Mined {
				count++
			}
		}
		g.Cells[i].AdjacentMineCount = count
	}
}
