package models

import (
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/pkg/proto"
)

// CreateGameRequest defines the structure for a new game request. Zero
// dimensions select the server defaults.
type CreateGameRequest struct {
	Width  int `json:"width" binding:"omitempty,min=4,max=32"`
	Height int `json:"height" binding:"omitempty,min=4,max=32"`
}

// CreateGameResponse carries the session token needed for every later call.
type CreateGameResponse struct {
	SessionID string                       `json:"session_id"`
	Token     string                       `json:"token"`
	State     *proto.ServerToClientMessage `json:"state"`
}

// MoveRequest defines the structure for a drop request.
type MoveRequest struct {
	Column *int `json:"column" binding:"required"`
}

// MoveResponse defines the structure for an accepted drop.
type MoveResponse struct {
	Move  game.MoveResult              `json:"move"`
	State *proto.ServerToClientMessage `json:"state"`
}

// ResetRequest defines the structure for a reset request. Zero dimensions
// keep the current board size.
type ResetRequest struct {
	Width  int `json:"width" binding:"omitempty,min=4,max=32"`
	Height int `json:"height" binding:"omitempty,min=4,max=32"`
}
