// Package sqlite implements repository.ProfileRepository on an embedded
// SQLite database.
//
// WHY SQLITE NEXT TO SUPABASE?
// The hosted deployment keeps profiles in Supabase. This store backs local
// development and tests: same table shape, no network, and a single file (or
// ":memory:") instead of a project. Select it with store.driver=sqlite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses cgo, so it needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite and builds anywhere Go does.
//
// LISTS IN A SQL COLUMN:
// tech_stack and github_repos are JSON arrays stored as TEXT. Writes encode
// them with encoding/json; Discover filters with SQLite's json_each table
// function, which gives the same exact-element match as PostgREST's "cs".
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named
	// "sqlite". Nothing else from the package is used directly.
	_ "modernc.org/sqlite"
)

// MIGRATIONS:
// Schema changes live in migrations/ as goose SQL files ("-- +goose Up" and
// "-- +goose Down" sections). go:embed compiles them into the binary, so a
// deployed server can migrate without the source tree. goose records what has
// run in its goose_db_version table.
//
//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// DB wraps a sql.DB connection pool and implements the profile repository.
//
// WHY WRAP sql.DB IN A STRUCT?
//  1. Repository methods hang off it (GetByID, Update, Discover, ...)
//  2. It satisfies repository.ProfileRepository, checked at compile time
//  3. New creates it, Close destroys it; the server owns the lifecycle
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and brings its schema up to date.
//
// dbPath examples:
//   - "data/devdate.db" → file-based database
//   - ":memory:"        → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(context.Background()); err != nil {
		db.conn.Close()
		return nil, err
	}

	return db, nil
}

// Open connects without running migrations. Used by the migrate command.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. Pinning
	// the pool to one connection keeps all queries on the same one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// MigrateUp applies every pending migration.
func (db *DB) MigrateUp(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.conn, migrationsDir); err != nil {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db.conn, migrationsDir); err != nil {
		return fmt.Errorf("sqlite: rolling back migration: %w", err)
	}
	return nil
}

// SchemaVersion returns the version of the last applied migration.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, db.conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return version, nil
}

// goose keeps its settings in package state, so they are re-applied before
// every call.
func setupGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: setting goose dialect: %w", err)
	}
	return nil
}
