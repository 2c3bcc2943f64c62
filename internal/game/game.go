package game

import (
	"errors"
	"fmt"
	"strconv"
)

// Player identifies the owner of a cell. Empty marks an unoccupied cell.
type Player uint8

const (
	Empty   Player = 0
	Player1 Player = 1
	Player2 Player = 2
)

// Opponent returns the other player. Empty has no opponent.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return Empty
}

// Valid reports whether p is one of the two players.
func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

func (p Player) String() string {
	if p == Empty {
		return "empty"
	}
	return fmt.Sprintf("player%d", uint8(p))
}

// MarshalJSON encodes p as a number. Without it a []Player row would be
// encoded as a base64 string, like []byte.
func (p Player) MarshalJSON() ([]byte, error) {
	return strconv.AppendUint(nil, uint64(p), 10), nil
}

// Status is the lifecycle stage of a game.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWin        Status = "win"
	StatusDraw       Status = "draw"
)

// Result is the outcome of a game. Winner is only set when Status is StatusWin.
type Result struct {
	Status Status `json:"status"`
	Winner Player `json:"winner,omitempty"`
}

var (
	InProgress = Result{Status: StatusInProgress}
	Draw       = Result{Status: StatusDraw}
)

// Win returns the terminal result for player p.
func Win(p Player) Result {
	return Result{Status: StatusWin, Winner: p}
}

// Terminal reports whether no further moves are accepted.
func (r Result) Terminal() bool {
	return r.Status == StatusWin || r.Status == StatusDraw
}

// Cell addresses one board position. Row 0 is the top row.
type Cell struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// MoveResult is returned for every accepted move.
type MoveResult struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Player Player `json:"player"`
	Result Result `json:"result"`
	// Next is the player to move after this one. It equals Player on a terminal move.
	Next Player `json:"next"`
}

const (
	DefaultWidth  = 7
	DefaultHeight = 6

	// ConnectN is the run length needed to win; it is also the minimum board dimension.
	ConnectN = 4
)

var (
	ErrInvalidColumn     = errors.New("invalid column")
	ErrColumnFull        = errors.New("column is full")
	ErrGameOver          = errors.New("game already finished")
	ErrInvalidDimensions = errors.New("invalid board dimensions")
	ErrCorruptSnapshot   = errors.New("corrupt game snapshot")
)
