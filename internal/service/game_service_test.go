package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ctchen222/Connect-Four/internal/events"
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/internal/repository/mocks"
	"ctchen222/Connect-Four/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	repo    *mocks.MockSessionRepository
	service GameService
	events  <-chan events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)

	metrics, err := telemetry.NewMetrics()
	require.NoError(t, err)

	bus := events.NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	return &fixture{
		repo:    repo,
		service: NewGameService(repo, bus, metrics, Options{DefaultWidth: 7, DefaultHeight: 6}),
		events:  ch,
	}
}

// applyTo makes Update run fn against engine, the way a real store does.
func (f *fixture) applyTo(id string, engine *game.Engine) {
	f.repo.EXPECT().
		Update(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, fn repository.UpdateFunc) (*repository.Session, error) {
			if err := fn(engine); err != nil {
				return nil, err
			}
			return &repository.Session{ID: id, Engine: engine, UpdatedAt: time.Now()}, nil
		})
}

func (f *fixture) nextEvent(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return events.Event{}
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
		wantErr       error
	}{
		{name: "defaults", wantW: 7, wantH: 6},
		{name: "custom", width: 9, height: 8, wantW: 9, wantH: 8},
		{name: "too narrow", width: 3, height: 6, wantErr: game.ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.wantErr == nil {
				f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			}

			s, err := f.service.Create(context.Background(), tt.width, tt.height)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, s.ID)
			assert.Equal(t, tt.wantW, s.Engine.Width())
			assert.Equal(t, tt.wantH, s.Engine.Height())
			assert.Equal(t, game.Player1, s.Engine.CurrentPlayer())
		})
	}
}

func TestCreateStoreFailure(t *testing.T) {
	f := newFixture(t)
	storeErr := errors.New("connection refused")
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storeErr)

	_, err := f.service.Create(context.Background(), 0, 0)
	assert.ErrorIs(t, err, storeErr)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	f.repo.EXPECT().FindByID(gomock.Any(), "missing").Return(nil, repository.ErrSessionNotFound)

	_, err := f.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestDropPublishesUpdate(t *testing.T) {
	f := newFixture(t)
	engine := game.NewDefault()
	f.applyTo("s1", engine)

	move, err := f.service.Drop(context.Background(), "s1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, move.Move.Row)
	assert.Equal(t, game.Player1, move.Move.Player)
	assert.Equal(t, game.Player2, move.Move.Next)
	assert.Equal(t, game.Player1, engine.Cell(5, 3))

	ev := f.nextEvent(t)
	assert.Equal(t, events.TypeSessionUpdated, ev.Type)
	var payload events.SessionUpdatedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, events.SessionUpdatedPayload{SessionID: "s1", Moves: 1}, payload)
}

func TestDropWinningMove(t *testing.T) {
	f := newFixture(t)
	engine := game.NewDefault()
	for _, c := range []int{0, 1, 0, 1, 0, 1} {
		_, err := engine.DropPiece(c)
		require.NoError(t, err)
	}
	f.applyTo("s1", engine)

	move, err := f.service.Drop(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, game.Win(game.Player1), move.Move.Result)
	assert.Equal(t, game.Win(game.Player1), move.Session.Engine.Result())
}

func TestDropRejected(t *testing.T) {
	full := game.NewDefault()
	for i := 0; i < 6; i++ {
		_, err := full.DropPiece(0)
		require.NoError(t, err)
	}

	won := game.NewDefault()
	for _, c := range []int{0, 1, 0, 1, 0, 1, 0} {
		_, err := won.DropPiece(c)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		engine  *game.Engine
		column  int
		wantErr error
	}{
		{name: "negative column", engine: game.NewDefault(), column: -1, wantErr: game.ErrInvalidColumn},
		{name: "column past the edge", engine: game.NewDefault(), column: 7, wantErr: game.ErrInvalidColumn},
		{name: "full column", engine: full, column: 0, wantErr: game.ErrColumnFull},
		{name: "finished game", engine: won, column: 3, wantErr: game.ErrGameOver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.applyTo("s1", tt.engine)
			before := tt.engine.Snapshot()

			_, err := f.service.Drop(context.Background(), "s1", tt.column)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, tt.engine.Snapshot())
			assert.Empty(t, f.events, "rejected moves publish nothing")
		})
	}
}

func TestDropUnknownSession(t *testing.T) {
	f := newFixture(t)
	f.repo.EXPECT().Update(gomock.Any(), "missing", gomock.Any()).Return(nil, repository.ErrSessionNotFound)

	_, err := f.service.Drop(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestReset(t *testing.T) {
	t.Run("keeps the board size", func(t *testing.T) {
		f := newFixture(t)
		engine, err := game.New(8, 7)
		require.NoError(t, err)
		_, err = engine.DropPiece(2)
		require.NoError(t, err)
		f.applyTo("s1", engine)

		s, err := f.service.Reset(context.Background(), "s1", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 8, s.Engine.Width())
		assert.Equal(t, 7, s.Engine.Height())
		assert.Zero(t, s.Engine.MoveCount())
		assert.Equal(t, game.Player1, s.Engine.CurrentPlayer())
		assert.Equal(t, events.TypeSessionUpdated, f.nextEvent(t).Type)
	})

	t.Run("resizes", func(t *testing.T) {
		f := newFixture(t)
		f.applyTo("s1", game.NewDefault())

		s, err := f.service.Reset(context.Background(), "s1", 10, 9)
		require.NoError(t, err)
		assert.Equal(t, 10, s.Engine.Width())
		assert.Equal(t, 9, s.Engine.Height())
	})

	t.Run("rejects invalid dimensions", func(t *testing.T) {
		f := newFixture(t)
		engine := game.NewDefault()
		_, err := engine.DropPiece(4)
		require.NoError(t, err)
		f.applyTo("s1", engine)

		_, err = f.service.Reset(context.Background(), "s1", 2, 2)
		assert.ErrorIs(t, err, game.ErrInvalidDimensions)
		assert.Equal(t, 1, engine.MoveCount())
	})
}

func TestEnd(t *testing.T) {
	f := newFixture(t)
	f.repo.EXPECT().Delete(gomock.Any(), "s1").Return(nil)

	require.NoError(t, f.service.End(context.Background(), "s1"))
	assert.Equal(t, events.TypeSessionEnded, f.nextEvent(t).Type)

	f.repo.EXPECT().Delete(gomock.Any(), "s1").Return(repository.ErrSessionNotFound)
	assert.ErrorIs(t, f.service.End(context.Background(), "s1"), repository.ErrSessionNotFound)
}
