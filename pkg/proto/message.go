package proto

import (
	"fmt"

	"ctchen222/Connect-Four/internal/game"
)

// Client message types.
const (
	TypeDrop  = "drop"
	TypeReset = "reset"
	TypeSync  = "sync"
)

// Server message types.
const (
	TypeState = "state"
	TypeError = "error"
	TypeToken = "token"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type   string `json:"type" validate:"required,oneof=drop reset sync"`
	Column *int   `json:"column,omitempty" validate:"required_if=Type drop"`
	Width  int    `json:"width,omitempty" validate:"omitempty,min=4,max=32"`
	Height int    `json:"height,omitempty" validate:"omitempty,min=4,max=32"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type         string          `json:"type" validate:"required"`
	SessionID    string          `json:"session_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Board        [][]game.Player `json:"board,omitempty"`
	Width        int             `json:"width,omitempty"`
	Height       int             `json:"height,omitempty"`
	Next         game.Player     `json:"next,omitempty"`
	Status       game.Status     `json:"status,omitempty"`
	Winner       game.Player     `json:"winner,omitempty"`
	Moves        int             `json:"moves"`
	LastMove     *game.Cell      `json:"last_move,omitempty"`
	WinningLine  []game.Cell     `json:"winning_line,omitempty"`
	ValidColumns []int           `json:"valid_columns"`
	Message      string          `json:"message,omitempty"`
	Token        string          `json:"token,omitempty"`
}

// NewStateMessage renders the engine state for a client.
func NewStateMessage(sessionID string, e *game.Engine) *ServerToClientMessage {
	result := e.Result()
	msg := &ServerToClientMessage{
		Type:         TypeState,
		SessionID:    sessionID,
		Board:        e.Board(),
		Width:        e.Width(),
		Height:       e.Height(),
		Status:       result.Status,
		Winner:       result.Winner,
		Moves:        e.MoveCount(),
		ValidColumns: e.ValidColumns(),
		Message:      ResultText(result),
	}
	if !result.Terminal() {
		msg.Next = e.CurrentPlayer()
	}
	if last, ok := e.LastMove(); ok {
		msg.LastMove = &last
	}
	if result.Status == game.StatusWin {
		msg.WinningLine, _ = e.WinningLine(result.Winner)
	}
	if msg.ValidColumns == nil {
		msg.ValidColumns = []int{}
	}
	return msg
}

// NewErrorMessage reports a rejected request.
func NewErrorMessage(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}

// NewTokenMessage hands a websocket client a refreshed session token.
func NewTokenMessage(sessionID, token string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeToken, SessionID: sessionID, Token: token}
}

// ResultText is the line shown under the board once a game ends.
func ResultText(r game.Result) string {
	switch r.Status {
	case game.StatusWin:
		return fmt.Sprintf("Player %d won!", uint8(r.Winner))
	case game.StatusDraw:
		return "Tie!"
	}
	return ""
}
