// Package db persists Sholl profiles in SQLite and exposes admin debug
// routes over the database.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle. Schema is owned by the embedded migrations.
type DB struct {
	*sql.DB
	path string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the database and applies connection pragmas without touching
// the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// foreign_keys is per connection; a single connection keeps it in force.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, path: path}, nil
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// Stats holds row counts for the debug endpoint.
type Stats struct {
	Profiles      int  `json:"profiles"`
	Entries       int  `json:"entries"`
	SchemaVersion uint `json:"schema_version"`
	Dirty         bool `json:"dirty"`
}

// GetDatabaseStats counts stored profiles and samples.
func (db *DB) GetDatabaseStats() (*Stats, error) {
	var s Stats
	if err := db.QueryRow("SELECT COUNT(*) FROM sholl_profiles").Scan(&s.Profiles); err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM sholl_profile_entries").Scan(&s.Entries); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return nil, err
	}
	s.SchemaVersion, s.Dirty = v, dirty
	return &s, nil
}
