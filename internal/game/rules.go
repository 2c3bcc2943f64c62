package game

// direction is a (row, column) step.
type direction struct {
	dRow, dCol int
}

// Scanning down-right and down-left from every origin covers both diagonal
// orientations, since an up-right run is a down-left run read from its far end.
var directions = [...]direction{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal down-right
	{1, -1}, // diagonal down-left
}

// CheckWin reports whether p owns ConnectN contiguous cells in any direction.
func (e *Engine) CheckWin(p Player) bool {
	_, ok := e.WinningLine(p)
	return ok
}

// WinningLine returns the first run of ConnectN cells owned by p, scanning
// origins row by row from the top left.
func (e *Engine) WinningLine(p Player) ([]Cell, bool) {
	if !p.Valid() {
		return nil, false
	}
	for row := 0; row < e.height; row++ {
		for col := 0; col < e.width; col++ {
			for _, d := range directions {
				if e.runFrom(row, col, d, p) {
					line := make([]Cell, ConnectN)
					for k := range line {
						line[k] = Cell{Row: row + k*d.dRow, Column: col + k*d.dCol}
					}
					return line, true
				}
			}
		}
	}
	return nil, false
}

// runFrom checks the ConnectN cells starting at (row, col) stepping by d.
func (e *Engine) runFrom(row, col int, d direction, p Player) bool {
	for k := 0; k < ConnectN; k++ {
		r, c := row+k*d.dRow, col+k*d.dCol
		if !e.inBounds(r, c) || e.cells[e.index(r, c)] != p {
			return false
		}
	}
	return true
}
