package response

import (
	"errors"
	"net/http"

	"ctchen222/Connect-Four/internal/auth"
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/repository"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalidColumn), errors.Is(err, game.ErrInvalidDimensions):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrColumnFull), errors.Is(err, game.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// DomainErrorResponse writes err with its mapped status. Internal errors are
// reported without detail.
func DomainErrorResponse(c *gin.Context, err error) {
	code := StatusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = http.StatusText(code)
	}
	ErrorResponse(c, code, message)
}
