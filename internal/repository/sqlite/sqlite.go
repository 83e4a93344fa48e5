// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of SQLite, so the binary builds
// without CGo. Schema changes live in migrations/ as numbered SQL files,
// embedded into the binary and applied by golang-migrate, which records the
// applied version in a schema_migrations table.
//
// The pattern is the usual database/sql one:
//  1. sql.Open(driverName, dsn)       → a connection pool, not a connection
//  2. QueryContext / ExecContext      → run statements with ? placeholders
//  3. rows.Scan(&a, &b)               → copy column values into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the connection pool. Each table gets its own accessor
// (Users, Transactions) so method names can stay short without colliding.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and applies any pending migrations.
//
// dbPath examples:
//   - "data/spending.db" → file-backed, persistent
//   - ":memory:"         → in-memory, used by tests
//
// Pragmas go in the DSN rather than through Exec: a PRAGMA run with Exec only
// configures whichever pooled connection happened to execute it.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database, so the
	// pool must never hold more than one.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate applies every embedded migration that has not run yet. It is safe
// to call on an up-to-date database.
//
// The migrate instance is never Closed. Closing it closes the database
// driver, and a driver built WithInstance closes our pool with it.
func (db *DB) Migrate() error {
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

// Version reports the schema version currently applied.
func (db *DB) Version(ctx context.Context) (uint, error) {
	var version uint
	err := db.conn.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations LIMIT 1`,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return version, nil
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// dsn appends the connection pragmas to dbPath:
//   - foreign_keys: OFF by default in SQLite; transactions reference users
//   - journal_mode=WAL: readers proceed while a write is in progress
//   - busy_timeout: writers wait for the lock instead of failing at once
func dsn(dbPath string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !isMemory(dbPath) {
		pragmas += "&_pragma=journal_mode(WAL)"
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + pragmas
}
