// Package source reads changed records out of the relational catalog.
// Change tracking uses each table's updated_at column (unix nanoseconds)
// together with the primary key as a composite cursor, so equal timestamps
// still have a total order.
package source

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the catalog database connection.
type DB struct {
	db *sql.DB
}

// Open opens the catalog database at the given path.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the connection.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Initialize creates the catalog schema. Used by tests and local setup;
// the sync daemon itself never writes to the source.
func (d *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS film_work (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		rating REAL,
		type TEXT NOT NULL DEFAULT 'movie',
		created_at INTEGER,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS genre (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS person (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS genre_film_work (
		film_work_id TEXT NOT NULL REFERENCES film_work(id),
		genre_id TEXT NOT NULL REFERENCES genre(id),
		PRIMARY KEY (film_work_id, genre_id)
	);

	CREATE TABLE IF NOT EXISTS person_film_work (
		film_work_id TEXT NOT NULL REFERENCES film_work(id),
		person_id TEXT NOT NULL REFERENCES person(id),
		role TEXT NOT NULL,
		PRIMARY KEY (film_work_id, person_id, role)
	);

	CREATE INDEX IF NOT EXISTS idx_film_work_updated ON film_work(updated_at, id);
	CREATE INDEX IF NOT EXISTS idx_genre_updated ON genre(updated_at, id);
	CREATE INDEX IF NOT EXISTS idx_person_updated ON person(updated_at, id);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// placeholders returns "?,?,...,?" with n placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
