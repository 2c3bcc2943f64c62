package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ctchen222/Connect-Four/internal/api/response"
	"ctchen222/Connect-Four/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	sessionTokenHeader = "X-Session-Token"
)

// requestID tags every request with an id, reusing the caller's when given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request.id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "HTTP request",
			"request.id", c.GetString("request.id"),
			"http.method", c.Request.Method,
			"http.route", c.FullPath(),
			"http.status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// requireSessionToken accepts "Authorization: Bearer <token>" or, for
// browsers opening a websocket, a token query parameter. Every accepted
// request gets a refreshed token in the X-Session-Token header.
func requireSessionToken(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if header := c.GetHeader("Authorization"); header != "" {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		fresh, err := tokens.Refresh(token, c.Param("id"))
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrInvalidToken) {
				status = http.StatusInternalServerError
			}
			response.ErrorResponse(c, status, err.Error())
			c.Abort()
			return
		}
		c.Set("session.token", fresh)
		c.Header(sessionTokenHeader, fresh)
		c.Next()
	}
}
