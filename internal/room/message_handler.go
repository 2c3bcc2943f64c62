package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/internal/validator"
	"ctchen222/Connect-Four/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a message from a client. It acts as a dispatcher.
// Accepted changes reach the clients through the session_updated event, so
// only errors and sync replies are written here.
func (r *Room) HandleMessage(ctx context.Context, c *client.Client, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("client.id", c.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.reply(ctx, c, proto.NewErrorMessage("malformed message"))
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from client", "client.id", c.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.reply(ctx, c, proto.NewErrorMessage(err.Error()))
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	switch message.Type {
	case proto.TypeDrop:
		r.handleDrop(ctx, c, *message.Column)
	case proto.TypeReset:
		r.handleReset(ctx, c, &message)
	case proto.TypeSync:
		r.handleSync(ctx, c)
	}
}

func (r *Room) handleDrop(ctx context.Context, c *client.Client, column int) {
	ctx, span := tracer.Start(ctx, "room.handleDrop", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("move.column", column),
	))
	defer span.End()

	if _, err := r.service.Drop(ctx, r.ID, column); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		r.reply(ctx, c, proto.NewErrorMessage(reasonFor(err)))
	}
}

func (r *Room) handleReset(ctx context.Context, c *client.Client, message *proto.ClientToServerMessage) {
	ctx, span := tracer.Start(ctx, "room.handleReset", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	if _, err := r.service.Reset(ctx, r.ID, message.Width, message.Height); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Reset rejected")
		r.reply(ctx, c, proto.NewErrorMessage(reasonFor(err)))
	}
}

func (r *Room) handleSync(ctx context.Context, c *client.Client) {
	session, err := r.service.Get(ctx, r.ID)
	if err != nil {
		r.reply(ctx, c, proto.NewErrorMessage(reasonFor(err)))
		return
	}
	r.reply(ctx, c, proto.NewStateMessage(r.ID, session.Engine))
}

func (r *Room) reply(ctx context.Context, c *client.Client, msg *proto.ServerToClientMessage) {
	if err := c.Send(msg); err != nil {
		slog.ErrorContext(ctx, "error writing message to client", "client.id", c.ID, "error", err)
	}
}

// reasonFor hides internal failures from clients.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidColumn),
		errors.Is(err, game.ErrColumnFull),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrInvalidDimensions),
		errors.Is(err, repository.ErrSessionNotFound):
		return err.Error()
	}
	return "internal error"
}
