package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fieldState     = "state"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"

	maxUpdateRetries = 8
)

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionRepository creates a Redis-based SessionRepository. Every
// write refreshes the key's TTL so idle sessions expire on their own.
func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create stores a new session. It fails if the id is already taken.
func (r *redisSessionRepository) Create(ctx context.Context, s *Session) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Create", trace.WithAttributes(
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	state, err := encodeEngine(s.Engine)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode game state")
		return err
	}

	key := sessionKey(s.ID)

	// The existence check and every field are written in one MULTI so a
	// failed create never leaves a key without its timestamps or expiry.
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSessionExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldState, state,
				fieldCreatedAt, s.CreatedAt.Format(time.RFC3339Nano),
				fieldUpdatedAt, s.UpdatedAt.Format(time.RFC3339Nano),
			)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}

	err = r.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionExists), errors.Is(err, redis.TxFailedErr):
		// A failed WATCH means another writer created the key first.
		span.SetStatus(codes.Error, "Session already exists")
		return ErrSessionExists
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return fmt.Errorf("failed to create session in redis: %w", err)
	}
}

// FindByID loads a session.
func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.FindByID", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get session")
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	s, err := sessionFromHash(id, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
		return nil, err
	}
	return s, nil
}

// Update applies fn inside a WATCH transaction, retrying when another writer
// got there first.
func (r *redisSessionRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*Session, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Update", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	key := sessionKey(id)
	var updated *Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		s, err := sessionFromHash(id, data)
		if err != nil {
			return err
		}
		if err := fn(s.Engine); err != nil {
			return err
		}

		state, err := encodeEngine(s.Engine)
		if err != nil {
			return err
		}
		s.UpdatedAt = time.Now().UTC()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldState, state)
			pipe.HSet(ctx, key, fieldUpdatedAt, s.UpdatedAt.Format(time.RFC3339Nano))
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = s
		return nil
	}

	for attempt := 1; attempt <= maxUpdateRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			span.SetAttributes(attribute.Int("update.attempts", attempt))
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update session")
		return nil, err
	}

	err := fmt.Errorf("failed to update session %s: too much contention", id)
	span.RecordError(err)
	span.SetStatus(codes.Error, "Update retries exhausted")
	return nil, err
}

// Delete removes a session. Deleting a missing session is an error.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	n, err := r.rdb.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func sessionFromHash(id string, data map[string]string) (*Session, error) {
	state, ok := data[fieldState]
	if !ok {
		return nil, ErrSessionNotFound
	}
	engine, err := decodeEngine([]byte(state))
	if err != nil {
		return nil, err
	}

	s := &Session{ID: id, Engine: engine}
	if v := data[fieldCreatedAt]; v != "" {
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
	}
	if v := data[fieldUpdatedAt]; v != "" {
		if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}
	return s, nil
}
