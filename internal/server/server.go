package server

import (
	"context"
	"log/slog"
	"net/http"

	"ctchen222/Connect-Four/internal/api/controller"
	"ctchen222/Connect-Four/internal/api/response"
	"ctchen222/Connect-Four/internal/auth"
	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/hub"
	"ctchen222/Connect-Four/internal/hub/types"
	"ctchen222/Connect-Four/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// HealthFunc reports whether the session store is reachable.
type HealthFunc func(ctx context.Context) error

type Server struct {
	hub      *hub.Hub
	games    *controller.GameController
	tokens   *auth.TokenManager
	health   HealthFunc
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(h *hub.Hub, games *controller.GameController, tokens *auth.TokenManager, health HealthFunc) *Server {
	s := &Server{
		hub:    h,
		games:  games,
		tokens: tokens,
		health: health,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes()
	return s
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api/games")
	api.POST("", s.games.Create)
	api.GET("/:id", s.games.Get)

	owned := api.Group("/:id", requireSessionToken(s.tokens))
	owned.POST("/moves", s.games.Move)
	owned.POST("/reset", s.games.Reset)
	owned.DELETE("", s.games.End)

	r.GET("/ws/games/:id", requireSessionToken(s.tokens), s.handleWebSocket)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			slog.ErrorContext(c.Request.Context(), "Health check failed", "error", err)
			response.ErrorResponse(c, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
	}
	response.SuccessResponse(c, gin.H{"status": "ok"})
}

// handleWebSocket's only responsibility is to upgrade the connection and
// pass a registration request to the hub.
func (s *Server) handleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.Path),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	clientID := uuid.NewString()
	span.SetAttributes(attribute.String("client.id", clientID))

	cl := client.NewClient(clientID, sessionID, conn)
	// Sent before registering so the token is the first frame the tab reads.
	if err := cl.Send(proto.NewTokenMessage(sessionID, c.GetString("session.token"))); err != nil {
		slog.WarnContext(ctx, "Failed to send session token", "client.id", clientID, "error", err)
		conn.Close()
		return
	}

	req := &types.RegistrationRequest{
		Client: cl,
		Ctx:    context.WithoutCancel(ctx),
	}
	select {
	case s.hub.Register() <- req:
	case <-s.hub.Done():
		conn.Close()
	}
}
