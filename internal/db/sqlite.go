// Package db is the SQLite persistence layer: the measurement store,
// the historical-average queries, and the alert-count ledger.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// schemaSQL is the single source of truth for the database schema,
// embedded at compile time.
//
//go:embed schema.sql
var schemaSQL string

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database with WAL mode and foreign
// keys enabled.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer; a single connection keeps the
	// collection/candidate/step sequence serialized.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates tables, indexes and views if they don't exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Reset drops the whole store and recreates it. This is the only
// sanctioned deletion path; normal operation never updates or deletes
// history.
func (db *DB) Reset(ctx context.Context) error {
	drops := []string{
		"DROP VIEW IF EXISTS v_route_stats",
		"DROP TABLE IF EXISTS route_steps",
		"DROP TABLE IF EXISTS routes",
		"DROP TABLE IF EXISTS collections",
		"DROP TABLE IF EXISTS alert_counts",
	}
	for _, stmt := range drops {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop: %w", err)
		}
	}
	return db.EnsureSchema(ctx)
}
