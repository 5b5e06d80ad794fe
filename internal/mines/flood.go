package mines

// floodReveal opens the connected region of cells without adjacent mines
// that contains id, together with its numbered border. Each frontier cell
// reveals all of its hidden safe neighbours at once and queues them.
func floodReveal(g *Game, id CellID) {
	todo := []CellID{id}
	for len(todo) > 0 {
		cur := todo[0]
		todo = todo[1:]

		if g.Cells[cellIDToIdx(cur)].AdjacentMineCount > 0 {
			continue
		}
		for _, n := range g.neighbours(cur) {
			c := &g.Cells[cellIDToIdx(n)]
			if c.Revealed || c.Mined {
				continue
			}
			c.Revealed = true
			todo = append(todo, n)
		}
	}
}
