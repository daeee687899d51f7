// Package sqlite implements the user directory on an embedded SQLite file.
//
// This is the no-infrastructure backend: same LoadAll/Put contract as the
// Redis store, but the "hash" is a two-column table. Useful for development
// and tests (":memory:") where running Redis is not worth the bother.
//
// We use modernc.org/sqlite — a pure Go translation of SQLite — so there is
// no CGo and no C toolchain involved in the build.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the directory methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Pass ":memory:" for an in-memory database that vanishes on Close.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path surfaces here,
	// not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — relevant for
	// a web server even though this store only sees writes on first login.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the directory tables. CREATE TABLE IF NOT EXISTS keeps
// this safe to run on every start.
//
// usertable mirrors the Redis hash exactly: provider key → serialized
// record. We deliberately do not break the record out into columns — the
// serialized form is the contract, and the in-memory index is the only
// reader that interprets it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usertable (
			key    TEXT PRIMARY KEY,
			record TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating usertable: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usercreds (
			user_id TEXT PRIMARY KEY,
			hash    TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating usercreds table: %w", err)
	}

	return nil
}
