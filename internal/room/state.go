package room

import (
	"context"
	"errors"
	"log/slog"

	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Refresh loads the session and sends its state to every client.
func (r *Room) Refresh(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.Refresh", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	session, err := r.service.Get(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Could not load session for room", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not load session")
		if errors.Is(err, repository.ErrSessionNotFound) {
			r.End(ctx)
		}
		return
	}
	r.Broadcast(ctx, proto.NewStateMessage(r.ID, session.Engine))
}

// End tells every client the session is gone and closes their connections.
// Each ReadPump then unregisters its client.
func (r *Room) End(ctx context.Context) {
	r.Broadcast(ctx, proto.NewErrorMessage("session ended"))
	for _, c := range r.Clients() {
		c.Conn.Close()
	}
}
