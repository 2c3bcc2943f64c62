package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/Connect-Four/internal/events"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleEvent forwards session events to the matching local room. Events for
// sessions with no local clients are ignored.
func (h *Hub) handleEvent(ctx context.Context, event events.Event) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.channel", events.EventsChannel),
		attribute.String("event.type", event.Type),
	))
	defer span.End()

	switch event.Type {
	case events.TypeSessionUpdated:
		var payload events.SessionUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal session_updated payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal session_updated payload")
			return
		}
		if r, ok := h.localRooms[payload.SessionID]; ok {
			r.Refresh(ctx)
		}

	case events.TypeSessionEnded:
		var payload events.SessionEndedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal session_ended payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal session_ended payload")
			return
		}
		if r, ok := h.localRooms[payload.SessionID]; ok {
			slog.InfoContext(ctx, "Received session_ended event", "room.id", payload.SessionID)
			r.End(ctx)
		}

	default:
		slog.WarnContext(ctx, "Ignoring unknown event", "event.type", event.Type)
	}
}
