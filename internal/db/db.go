// Package db persists analysis runs and per-beam metrics in SQLite. Schema
// changes go through golang-migrate; see the migrations directory next to
// this package.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the SQLite database at path. The schema is
// managed by migrations, not here; call MigrateUp before using the stores.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// applyPragmas sets the connection pragmas every database gets: WAL for
// concurrent readers, a busy timeout so writers queue instead of failing,
// NORMAL sync and in-memory temp tables.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return nil
}
