package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/Connect-Four/internal/game"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Session is one game in progress, owned by a single browser session.
type Session struct {
	ID        string
	Engine    *game.Engine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateFunc mutates the engine of a session. Returning an error aborts the
// update and nothing is written.
type UpdateFunc func(e *game.Engine) error

// SessionRepository stores game sessions.
//
//go:generate mockgen -source=session_repository.go -destination=mocks/session_repository_mock.go -package=mocks
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	// Update runs fn against the latest stored engine and persists the result
	// atomically. Concurrent updates of the same session never interleave.
	Update(ctx context.Context, id string, fn UpdateFunc) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func encodeEngine(e *game.Engine) ([]byte, error) {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	return data, nil
}

func decodeEngine(data []byte) (*game.Engine, error) {
	var snapshot game.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state: %w", err)
	}
	e, err := game.Restore(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to restore game state: %w", err)
	}
	return e, nil
}
