package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/Connect-Four/internal/game"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Engine:    game.NewDefault(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// testSessionRepository exercises behaviour every SessionRepository must share.
func testSessionRepository(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.Engine.Snapshot(), got.Engine.Snapshot())
		assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("create twice", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))
		assert.ErrorIs(t, repo.Create(ctx, s), ErrSessionExists)
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("update persists the move", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))

		var move game.MoveResult
		updated, err := repo.Update(ctx, s.ID, func(e *game.Engine) error {
			var err error
			move, err = e.DropPiece(3)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 5, move.Row)
		assert.Equal(t, game.Player1, updated.Engine.Cell(5, 3))

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, game.Player1, got.Engine.Cell(5, 3))
		assert.Equal(t, game.Player2, got.Engine.CurrentPlayer())
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))

		_, err := repo.Update(ctx, s.ID, func(e *game.Engine) error {
			_, err := e.DropPiece(-1)
			return err
		})
		require.ErrorIs(t, err, game.ErrInvalidColumn)

		boom := errors.New("boom")
		_, err = repo.Update(ctx, s.ID, func(e *game.Engine) error {
			if _, err := e.DropPiece(0); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Engine.MoveCount())
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := repo.Update(ctx, uuid.NewString(), func(*game.Engine) error { return nil })
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("concurrent updates do not lose moves", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))

		// Twelve moves fill columns 0 and 1 without a winner.
		const moves = 12
		var wg sync.WaitGroup
		errs := make(chan error, moves)
		for i := 0; i < moves; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Update(ctx, s.ID, func(e *game.Engine) error {
					_, err := e.DropPiece(e.ValidColumns()[0])
					return err
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, moves, got.Engine.MoveCount())
		assert.Equal(t, game.InProgress, got.Engine.Result())
	})

	t.Run("delete", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, repo.Create(ctx, s))

		require.NoError(t, repo.Delete(ctx, s.ID))
		_, err := repo.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrSessionNotFound)
	})
}
