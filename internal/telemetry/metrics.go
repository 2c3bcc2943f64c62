package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "ctchen222/Connect-Four"

// Metrics holds the game instruments. The zero value is not usable; build it
// with NewMetrics.
type Metrics struct {
	moves          metric.Int64Counter
	gamesStarted   metric.Int64Counter
	gamesFinished  metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	moves, err := meter.Int64Counter("connect4.moves",
		metric.WithDescription("Moves submitted, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create moves counter: %w", err)
	}
	started, err := meter.Int64Counter("connect4.games.started",
		metric.WithDescription("Games started or reset"))
	if err != nil {
		return nil, fmt.Errorf("failed to create games started counter: %w", err)
	}
	finished, err := meter.Int64Counter("connect4.games.finished",
		metric.WithDescription("Games that reached a win or a draw"))
	if err != nil {
		return nil, fmt.Errorf("failed to create games finished counter: %w", err)
	}
	active, err := meter.Int64UpDownCounter("connect4.sessions.active",
		metric.WithDescription("Sessions with at least one attached websocket"))
	if err != nil {
		return nil, fmt.Errorf("failed to create active sessions counter: %w", err)
	}

	return &Metrics{
		moves:          moves,
		gamesStarted:   started,
		gamesFinished:  finished,
		activeSessions: active,
	}, nil
}

// RecordMove counts a move attempt. outcome is "accepted" or the rejection kind.
func (m *Metrics) RecordMove(ctx context.Context, outcome string) {
	m.moves.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordGameStarted(ctx context.Context, width, height int) {
	m.gamesStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("board.width", width),
		attribute.Int("board.height", height),
	))
}

// RecordGameFinished counts a terminal result; outcome is "win" or "draw".
func (m *Metrics) RecordGameFinished(ctx context.Context, outcome string) {
	m.gamesFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) SessionAttached(ctx context.Context) {
	m.activeSessions.Add(ctx, 1)
}

func (m *Metrics) SessionDetached(ctx context.Context) {
	m.activeSessions.Add(ctx, -1)
}
