package room

import (
	"context"
	"log/slog"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/hub/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Broadcast sends a message to every client in the room.
func (r *Room) Broadcast(ctx context.Context, message any) {
	ctx, span := tracer.Start(ctx, "room.Broadcast", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	for _, c := range r.Clients() {
		if err := c.Send(message); err != nil {
			slog.ErrorContext(ctx, "error writing message to client", "client.id", c.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error writing message to client")
		}
	}
}

// ReadPump pumps messages from the websocket connection to the room loop.
// onClose runs once the connection fails or is closed.
func (r *Room) ReadPump(c *client.Client, onClose func(*client.Client)) {
	ctx, span := tracer.Start(context.Background(), "room.ReadPump", trace.WithAttributes(
		attribute.String("client.id", c.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	defer func() {
		c.Conn.Close()
		slog.InfoContext(ctx, "Client disconnected", "client.id", c.ID, "room.id", r.ID)
		onClose(c)
	}()

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			slog.WarnContext(ctx, "Client connection error", "client.id", c.ID, "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Client connection error")
			return
		}
		select {
		case r.incoming <- &types.ClientMessage{Client: c, Message: msg}:
		case <-r.Done:
			return
		}
	}
}
