package controller

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ctchen222/Connect-Four/internal/api/models"
	"ctchen222/Connect-Four/internal/api/response"
	"ctchen222/Connect-Four/internal/auth"
	"ctchen222/Connect-Four/internal/service"
	"ctchen222/Connect-Four/pkg/proto"

	"github.com/gin-gonic/gin"
)

// GameController handles game-related HTTP requests.
type GameController struct {
	games  service.GameService
	tokens *auth.TokenManager
}

// NewGameController creates a new GameController.
func NewGameController(games service.GameService, tokens *auth.TokenManager) *GameController {
	return &GameController{
		games:  games,
		tokens: tokens,
	}
}

// Create starts a game session and returns its token.
func (gc *GameController) Create(c *gin.Context) {
	var req models.CreateGameRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := gc.games.Create(c.Request.Context(), req.Width, req.Height)
	if err != nil {
		response.DomainErrorResponse(c, err)
		return
	}

	token, err := gc.tokens.Issue(session.ID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to issue session token", "session.id", session.ID, "error", err)
		response.DomainErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, models.CreateGameResponse{
		SessionID: session.ID,
		Token:     token,
		State:     proto.NewStateMessage(session.ID, session.Engine),
	})
}

// Get returns the current state of a session.
func (gc *GameController) Get(c *gin.Context) {
	session, err := gc.games.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.DomainErrorResponse(c, err)
		return
	}
	response.SuccessResponse(c, proto.NewStateMessage(session.ID, session.Engine))
}

// Move drops a piece for the player whose turn it is.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	move, err := gc.games.Drop(c.Request.Context(), c.Param("id"), *req.Column)
	if err != nil {
		response.DomainErrorResponse(c, err)
		return
	}

	response.SuccessResponse(c, models.MoveResponse{
		Move:  move.Move,
		State: proto.NewStateMessage(move.Session.ID, move.Session.Engine),
	})
}

// Reset starts a new game in the session.
func (gc *GameController) Reset(c *gin.Context) {
	var req models.ResetRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := gc.games.Reset(c.Request.Context(), c.Param("id"), req.Width, req.Height)
	if err != nil {
		response.DomainErrorResponse(c, err)
		return
	}
	response.SuccessResponse(c, proto.NewStateMessage(session.ID, session.Engine))
}

// End deletes the session.
func (gc *GameController) End(c *gin.Context) {
	if err := gc.games.End(c.Request.Context(), c.Param("id")); err != nil {
		response.DomainErrorResponse(c, err)
		return
	}
	response.SuccessResponse(c, gin.H{"message": "Game ended"})
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
