package mines

// updateState moves the game into a terminal state when a mine has been
// revealed (lost), or when every safe cell is revealed or every mine is
// flagged (won). The loss check always runs first.
func updateState(g *Game) {
	switch {
	case g.mineRevealed():
		g.State = Lost
	case g.allCellsRevealed() || g.allMinesFlagged():
		g.State = Won
	default:
		return
	}
	revealAll(g)
}

func revealAll(g *Game) {
	for i := range g.Cells {
		g.Cells[i].Revealed = true
	}
}

func (g Game) mineRevealed() bool {
	for _, c := range g.Cells {
		if c.Mined && c.Revealed {
			return true
		}
	}
	return false
}

func (g Game) allCellsRevealed() bool {
	for _, c := range g.Cells {
		if !c.Mined && !c.Revealed {
			return false
		}
	}
	return true
}

func (g Game) allMinesFlagged() bool {
	for _, c := range g.Cells {
		if c.Mined && !c.Flagged {
			return false
		}
	}
	return true
}

func (g Game) allFlagsUsed() bool {
	return g.FlagCount() >= g.MineCount
}
