package game

import "fmt"

// Engine holds the state of a single Connect Four game. It is not safe for
// concurrent use; callers serialise access per game.
type Engine struct {
	width   int
	height  int
	cells   []Player // row-major, row 0 on top
	current Player
	result  Result
	moves   int
	last    *Cell
}

// New returns an engine with an empty width x height board and Player1 to move.
func New(width, height int) (*Engine, error) {
	e := &Engine{}
	if err := e.Reset(width, height); err != nil {
		return nil, err
	}
	return e, nil
}

// NewDefault returns an engine with the standard 7x6 board.
func NewDefault() *Engine {
	e, _ := New(DefaultWidth, DefaultHeight)
	return e
}

// Reset discards the current game and starts a new one. Dimensions below
// ConnectN are rejected and leave the engine untouched.
func (e *Engine) Reset(width, height int) error {
	if width < ConnectN || height < ConnectN {
		return fmt.Errorf("%w: %dx%d, both must be at least %d", ErrInvalidDimensions, width, height, ConnectN)
	}

	e.width = width
	e.height = height
	e.cells = make([]Player, width*height)
	e.current = Player1
	e.result = InProgress
	e.moves = 0
	e.last = nil
	return nil
}

func (e *Engine) Width() int  { return e.width }
func (e *Engine) Height() int { return e.height }

// CurrentPlayer returns the player whose turn it is. After a terminal move it
// keeps pointing at the player who made that move.
func (e *Engine) CurrentPlayer() Player { return e.current }

func (e *Engine) Result() Result { return e.result }

// MoveCount returns the number of pieces on the board.
func (e *Engine) MoveCount() int { return e.moves }

// LastMove returns the most recently placed cell, if any.
func (e *Engine) LastMove() (Cell, bool) {
	if e.last == nil {
		return Cell{}, false
	}
	return *e.last, true
}

// Cell returns the owner of (row, column). Out of range cells read as Empty.
func (e *Engine) Cell(row, column int) Player {
	if !e.inBounds(row, column) {
		return Empty
	}
	return e.cells[e.index(row, column)]
}

// Board returns a copy of the grid, top row first. Every row is its own slice.
func (e *Engine) Board() [][]Player {
	board := make([][]Player, e.height)
	for row := range board {
		board[row] = make([]Player, e.width)
		copy(board[row], e.cells[row*e.width:(row+1)*e.width])
	}
	return board
}

// FindLandingRow returns the lowest empty row in column. ok is false when the
// column is full or out of range.
func (e *Engine) FindLandingRow(column int) (row int, ok bool) {
	if column < 0 || column >= e.width {
		return -1, false
	}
	for row := e.height - 1; row >= 0; row-- {
		if e.cells[e.index(row, column)] == Empty {
			return row, true
		}
	}
	return -1, false
}

// ValidColumns lists the columns that still accept a piece.
func (e *Engine) ValidColumns() []int {
	if e.result.Terminal() {
		return nil
	}
	columns := make([]int, 0, e.width)
	for c := 0; c < e.width; c++ {
		if e.cells[e.index(0, c)] == Empty {
			columns = append(columns, c)
		}
	}
	return columns
}

// DropPiece places the current player's piece in column. A rejected move
// leaves the engine unchanged.
//
// After placement the engine checks, in order: a win for the mover, a full
// board, and otherwise hands the turn to the opponent. A win on the last free
// cell is reported as a win.
func (e *Engine) DropPiece(column int) (MoveResult, error) {
	if e.result.Terminal() {
		return MoveResult{}, ErrGameOver
	}
	if column < 0 || column >= e.width {
		return MoveResult{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidColumn, column, e.width)
	}
	row, ok := e.FindLandingRow(column)
	if !ok {
		return MoveResult{}, fmt.Errorf("%w: %d", ErrColumnFull, column)
	}

	mover := e.current
	e.cells[e.index(row, column)] = mover
	e.moves++
	e.last = &Cell{Row: row, Column: column}

	switch {
	case e.CheckWin(mover):
		e.result = Win(mover)
	case e.IsBoardFull():
		e.result = Draw
	default:
		e.current = mover.Opponent()
	}

	return MoveResult{
		Row:    row,
		Column: column,
		Player: mover,
		Result: e.result,
		Next:   e.current,
	}, nil
}

// IsBoardFull reports whether every cell is occupied.
func (e *Engine) IsBoardFull() bool {
	for _, cell := range e.cells {
		if cell == Empty {
			return false
		}
	}
	return true
}

func (e *Engine) inBounds(row, column int) bool {
	return row >= 0 && row < e.height && column >= 0 && column < e.width
}

func (e *Engine) index(row, column int) int {
	return row*e.width + column
}
