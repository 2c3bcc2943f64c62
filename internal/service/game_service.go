package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ctchen222/Connect-Four/internal/events"
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service")

// Move is the outcome of an accepted drop.
type Move struct {
	Session *repository.Session
	Move    game.MoveResult
}

// GameService runs games on top of a session store.
//
//go:generate mockgen -source=game_service.go -destination=mocks/game_service_mock.go -package=mocks
type GameService interface {
	// Create starts a new session. Zero dimensions select the configured defaults.
	Create(ctx context.Context, width, height int) (*repository.Session, error)
	Get(ctx context.Context, id string) (*repository.Session, error)
	Drop(ctx context.Context, id string, column int) (*Move, error)
	// Reset starts a new game in an existing session. Zero dimensions keep the
	// current board size.
	Reset(ctx context.Context, id string, width, height int) (*repository.Session, error)
	End(ctx context.Context, id string) error
}

// Options holds the board size used when a request does not name one.
type Options struct {
	DefaultWidth  int
	DefaultHeight int
}

type gameService struct {
	repo    repository.SessionRepository
	bus     events.Bus
	metrics *telemetry.Metrics
	opts    Options
}

// NewGameService creates a GameService.
func NewGameService(repo repository.SessionRepository, bus events.Bus, metrics *telemetry.Metrics, opts Options) GameService {
	if opts.DefaultWidth == 0 {
		opts.DefaultWidth = game.DefaultWidth
	}
	if opts.DefaultHeight == 0 {
		opts.DefaultHeight = game.DefaultHeight
	}
	return &gameService{repo: repo, bus: bus, metrics: metrics, opts: opts}
}

func (s *gameService) Create(ctx context.Context, width, height int) (*repository.Session, error) {
	if width == 0 {
		width = s.opts.DefaultWidth
	}
	if height == 0 {
		height = s.opts.DefaultHeight
	}

	ctx, span := tracer.Start(ctx, "GameService.Create", trace.WithAttributes(
		attribute.Int("board.width", width),
		attribute.Int("board.height", height),
	))
	defer span.End()

	engine, err := game.New(width, height)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid board dimensions")
		return nil, err
	}

	now := time.Now().UTC()
	session := &repository.Session{
		ID:        uuid.NewString(),
		Engine:    engine,
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	if err := s.repo.Create(ctx, session); err != nil {
		slog.ErrorContext(ctx, "Failed to store new session", "session.id", session.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store session")
		return nil, err
	}

	s.metrics.RecordGameStarted(ctx, width, height)
	slog.InfoContext(ctx, "Game session created", "session.id", session.ID, "board.width", width, "board.height", height)
	return session, nil
}

func (s *gameService) Get(ctx context.Context, id string) (*repository.Session, error) {
	ctx, span := tracer.Start(ctx, "GameService.Get", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to load session")
		}
		return nil, err
	}
	return session, nil
}

func (s *gameService) Drop(ctx context.Context, id string, column int) (*Move, error) {
	ctx, span := tracer.Start(ctx, "GameService.Drop", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.column", column),
	))
	defer span.End()

	var move game.MoveResult
	session, err := s.repo.Update(ctx, id, func(e *game.Engine) error {
		var err error
		move, err = e.DropPiece(column)
		return err
	})
	if err != nil {
		s.metrics.RecordMove(ctx, moveOutcome(err))
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		slog.WarnContext(ctx, "Move rejected", "session.id", id, "move.column", column, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("move.valid", true),
		attribute.Int("move.row", move.Row),
		attribute.String("game.status", string(move.Result.Status)),
	)
	s.metrics.RecordMove(ctx, "accepted")
	if move.Result.Terminal() {
		s.metrics.RecordGameFinished(ctx, string(move.Result.Status))
		slog.InfoContext(ctx, "Game finished", "session.id", id, "game.status", move.Result.Status, "game.winner", move.Result.Winner.String())
	}

	s.publish(ctx, events.TypeSessionUpdated, events.SessionUpdatedPayload{SessionID: id, Moves: session.Engine.MoveCount()})
	return &Move{Session: session, Move: move}, nil
}

func (s *gameService) Reset(ctx context.Context, id string, width, height int) (*repository.Session, error) {
	ctx, span := tracer.Start(ctx, "GameService.Reset", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	session, err := s.repo.Update(ctx, id, func(e *game.Engine) error {
		w, h := width, height
		if w == 0 {
			w = e.Width()
		}
		if h == 0 {
			h = e.Height()
		}
		return e.Reset(w, h)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Reset rejected")
		return nil, err
	}

	s.metrics.RecordGameStarted(ctx, session.Engine.Width(), session.Engine.Height())
	slog.InfoContext(ctx, "Game reset", "session.id", id, "board.width", session.Engine.Width(), "board.height", session.Engine.Height())
	s.publish(ctx, events.TypeSessionUpdated, events.SessionUpdatedPayload{SessionID: id})
	return session, nil
}

func (s *gameService) End(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameService.End", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to end session")
		return err
	}

	slog.InfoContext(ctx, "Game session ended", "session.id", id)
	s.publish(ctx, events.TypeSessionEnded, events.SessionEndedPayload{SessionID: id})
	return nil
}

// publish is best effort; the change is already stored and tabs can sync.
func (s *gameService) publish(ctx context.Context, eventType string, payload any) {
	event, err := events.New(eventType, payload)
	if err == nil {
		err = s.bus.Publish(ctx, event)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "event.type", eventType, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}

func moveOutcome(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidColumn):
		return "invalid_column"
	case errors.Is(err, game.ErrColumnFull):
		return "column_full"
	case errors.Is(err, game.ErrGameOver):
		return "game_over"
	case errors.Is(err, repository.ErrSessionNotFound):
		return "session_not_found"
	default:
		return "error"
	}
}
