package db

import (
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);`

// OpenSQLite opens the SQLite database at dsn and makes sure the session
// schema exists.
//
// The pool is limited to one connection: an in-memory database lives only as
// long as its connections, and SQLite serialises writers anyway.
func OpenSQLite(dsn string) (*sqlx.DB, error) {
	pool, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxIdleTime(0)
	pool.SetConnMaxLifetime(0)

	if _, err := pool.Exec(sessionSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	slog.Info("SQLite session store ready", "dsn", dsn)
	return pool, nil
}
