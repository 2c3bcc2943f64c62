package hub

import (
	"context"
	"log/slog"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/hub/types"
	"ctchen222/Connect-Four/internal/room"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (h *Hub) handleRegistration(req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	c := req.Client
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("client.id", c.ID),
		attribute.String("room.id", c.SessionID),
	))
	defer span.End()

	r, ok := h.localRooms[c.SessionID]
	if !ok {
		slog.InfoContext(ctx, "Creating local room for session", "room.id", c.SessionID)
		r = room.NewRoom(c.SessionID, h.service)
		h.localRooms[c.SessionID] = r
		r.Start()
		h.metrics.SessionAttached(ctx)
	}
	r.AddClient(c)
	go r.ReadPump(c, h.unregisterClient)

	slog.InfoContext(ctx, "Client attached to room", "client.id", c.ID, "room.id", c.SessionID, "clients.count", len(r.Clients()))
	h.sendInitialState(ctx, r, c)
}

func (h *Hub) handleUnregistration(ctx context.Context, c *client.Client) {
	ctx, span := tracer.Start(ctx, "hub.handleUnregistration", trace.WithAttributes(
		attribute.String("client.id", c.ID),
		attribute.String("room.id", c.SessionID),
	))
	defer span.End()

	r, ok := h.localRooms[c.SessionID]
	if !ok {
		return
	}
	if remaining := r.RemoveClient(c); remaining > 0 {
		return
	}

	r.Stop()
	delete(h.localRooms, c.SessionID)
	h.metrics.SessionDetached(ctx)
	slog.InfoContext(ctx, "Room closed due to no clients", "room.id", c.SessionID)
}
