package hub

import (
	"context"
	"log/slog"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/room"
	"ctchen222/Connect-Four/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sendInitialState gives a newly attached client the current board. A client
// of a session that no longer exists is told so and disconnected.
func (h *Hub) sendInitialState(ctx context.Context, r *room.Room, c *client.Client) {
	ctx, span := tracer.Start(ctx, "hub.sendInitialState", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("client.id", c.ID),
	))
	defer span.End()

	var msg *proto.ServerToClientMessage
	session, err := h.service.Get(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Could not get initial game state", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not get initial game state")
		msg = proto.NewErrorMessage("session not found")
	} else {
		msg = proto.NewStateMessage(r.ID, session.Engine)
	}

	if err := c.Send(msg); err != nil {
		slog.ErrorContext(ctx, "Error sending initial state to client", "client.id", c.ID, "error", err)
		span.RecordError(err)
	}
	if session == nil {
		c.Conn.Close()
	}
}
