package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type sessionRow struct {
	ID        string `db:"id"`
	State     string `db:"state"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// SQLiteSessionRepository is a SessionRepository backed by SQLite. Expired
// rows are invisible to reads and removed by PurgeExpired.
type SQLiteSessionRepository struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteSessionRepository creates a SQLite-based SessionRepository on a
// database prepared by db.OpenSQLite.
func NewSQLiteSessionRepository(db *sqlx.DB, ttl time.Duration) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, s *Session) error {
	ctx, span := tracer.Start(ctx, "SQLiteSessionRepository.Create", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	state, err := encodeEngine(s.Engine)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode game state")
		return err
	}

	query := `INSERT INTO sessions (id, state, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, s.ID, string(state),
		s.CreatedAt.UnixNano(), s.UpdatedAt.UnixNano(), r.now().Add(r.ttl).UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			span.SetStatus(codes.Error, "Session already exists")
			return ErrSessionExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) FindByID(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "SQLiteSessionRepository.FindByID", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	s, err := r.find(ctx, r.db, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
	}
	return s, err
}

// Update runs fn inside a transaction. The pool has a single connection, so
// transactions on the same database never overlap.
func (r *SQLiteSessionRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*Session, error) {
	ctx, span := tracer.Start(ctx, "SQLiteSessionRepository.Update", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := r.find(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s.Engine); err != nil {
		return nil, err
	}

	state, err := encodeEngine(s.Engine)
	if err != nil {
		return nil, err
	}
	now := r.now()
	s.UpdatedAt = now.UTC()

	query := `UPDATE sessions SET state = ?, updated_at = ?, expires_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, string(state), now.UnixNano(), now.Add(r.ttl).UnixNano(), id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update session")
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to commit session update")
		return nil, fmt.Errorf("failed to commit session update: %w", err)
	}
	return s, nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SQLiteSessionRepository.Delete", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND expires_at > ?`, id, r.now().UnixNano())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PurgeExpired deletes sessions whose TTL has passed and returns how many
// were removed.
func (r *SQLiteSessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "SQLiteSessionRepository.PurgeExpired")
	defer span.End()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, r.now().UnixNano())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to purge sessions")
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	span.SetAttributes(attribute.Int64("sessions.purged", n))
	return n, nil
}

func (r *SQLiteSessionRepository) find(ctx context.Context, q sqlx.QueryerContext, id string) (*Session, error) {
	var row sessionRow
	query := `SELECT id, state, created_at, updated_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`
	if err := sqlx.GetContext(ctx, q, &row, query, id, r.now().UnixNano()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	engine, err := decodeEngine([]byte(row.State))
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        row.ID,
		Engine:    engine,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, row.UpdatedAt).UTC(),
	}, nil
}
