package evidence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// NewSQLite opens a SQLite-backed Store at path (a file path, or
// "file::memory:?cache=shared" for tests).
func NewSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("evidence: open sqlite: %w", err)
	}
	// A single task is written by exactly one orchestrator run at a time,
	// but the Monitor Service reads concurrently from the same handle.
	db.SetMaxOpenConns(1)
	return &sqlStore{db: db, d: sqliteDialect}, nil
}
