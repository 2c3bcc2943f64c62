package game

import "fmt"

// Snapshot is the serialisable form of an Engine, used by session stores.
type Snapshot struct {
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Cells    [][]Player `json:"cells"`
	Current  Player     `json:"current"`
	Result   Result     `json:"result"`
	Moves    int        `json:"moves"`
	LastMove *Cell      `json:"last_move,omitempty"`
}

// Snapshot captures the engine state. The returned value shares no memory
// with the engine.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Width:   e.width,
		Height:  e.height,
		Cells:   e.Board(),
		Current: e.current,
		Result:  e.result,
		Moves:   e.moves,
	}
	if e.last != nil {
		last := *e.last
		s.LastMove = &last
	}
	return s
}

// Restore rebuilds an engine from a snapshot. Snapshots that could not have
// been produced by legal play are rejected with ErrCorruptSnapshot.
func Restore(s Snapshot) (*Engine, error) {
	e, err := New(s.Width, s.Height)
	if err != nil {
		return nil, err
	}
	if len(s.Cells) != s.Height {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrCorruptSnapshot, len(s.Cells), s.Height)
	}

	counts := map[Player]int{}
	for row, cells := range s.Cells {
		if len(cells) != s.Width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrCorruptSnapshot, row, len(cells), s.Width)
		}
		for col, p := range cells {
			if p != Empty && !p.Valid() {
				return nil, fmt.Errorf("%w: unknown player %d at (%d,%d)", ErrCorruptSnapshot, p, row, col)
			}
			// Pieces rest on the bottom row or on another piece.
			if p != Empty && row+1 < s.Height && s.Cells[row+1][col] == Empty {
				return nil, fmt.Errorf("%w: floating piece at (%d,%d)", ErrCorruptSnapshot, row, col)
			}
			e.cells[e.index(row, col)] = p
			counts[p]++
		}
	}

	p1, p2 := counts[Player1], counts[Player2]
	if diff := p1 - p2; diff != 0 && diff != 1 {
		return nil, fmt.Errorf("%w: piece counts %d/%d", ErrCorruptSnapshot, p1, p2)
	}
	if s.Moves != p1+p2 {
		return nil, fmt.Errorf("%w: %d moves recorded, %d pieces on board", ErrCorruptSnapshot, s.Moves, p1+p2)
	}
	if !s.Current.Valid() {
		return nil, fmt.Errorf("%w: current player %d", ErrCorruptSnapshot, s.Current)
	}

	// Player1 opens, so equal counts mean Player2 placed the last piece.
	mover, next := Player2, Player1
	if p1 > p2 {
		mover, next = Player1, Player2
	}
	win1, win2 := e.CheckWin(Player1), e.CheckWin(Player2)

	switch s.Result.Status {
	case StatusInProgress:
		if win1 || win2 {
			return nil, fmt.Errorf("%w: game in progress with a completed line", ErrCorruptSnapshot)
		}
		if e.IsBoardFull() {
			return nil, fmt.Errorf("%w: game in progress on a full board", ErrCorruptSnapshot)
		}
		if s.Current != next {
			return nil, fmt.Errorf("%w: %s to move, want %s", ErrCorruptSnapshot, s.Current, next)
		}
	case StatusWin:
		if !e.CheckWin(s.Result.Winner) {
			return nil, fmt.Errorf("%w: recorded winner %s has no line", ErrCorruptSnapshot, s.Result.Winner)
		}
		if win1 && win2 {
			return nil, fmt.Errorf("%w: both players have a line", ErrCorruptSnapshot)
		}
		if s.Result.Winner != mover {
			return nil, fmt.Errorf("%w: winner %s did not place the last piece", ErrCorruptSnapshot, s.Result.Winner)
		}
	case StatusDraw:
		if !e.IsBoardFull() {
			return nil, fmt.Errorf("%w: draw on a board with free cells", ErrCorruptSnapshot)
		}
		if win1 || win2 {
			return nil, fmt.Errorf("%w: draw with a completed line", ErrCorruptSnapshot)
		}
	default:
		return nil, fmt.Errorf("%w: status %q", ErrCorruptSnapshot, s.Result.Status)
	}
	// The turn does not pass after the final move.
	if s.Result.Terminal() && s.Current != mover {
		return nil, fmt.Errorf("%w: %s current after a finished game, want %s", ErrCorruptSnapshot, s.Current, mover)
	}

	e.current = s.Current
	e.result = s.Result
	e.moves = s.Moves
	if s.LastMove != nil {
		if !e.inBounds(s.LastMove.Row, s.LastMove.Column) {
			return nil, fmt.Errorf("%w: last move out of bounds", ErrCorruptSnapshot)
		}
		last := *s.LastMove
		e.last = &last
	}
	return e, nil
}
