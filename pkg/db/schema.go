package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migration brings the schema from version-1 to version.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{version: 1, sql: `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS profiles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    timezone    TEXT NOT NULL DEFAULT 'UTC',
    is_active   INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS api_servers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    profile_id  INTEGER NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
    host        TEXT NOT NULL DEFAULT '0.0.0.0',
    port        INTEGER NOT NULL DEFAULT 8080,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_profiles_active ON profiles(is_active);
`},
	{version: 2, sql: `
-- One row per fan-out command
CREATE TABLE IF NOT EXISTS dispatches (
    id           TEXT PRIMARY KEY,
    kind         TEXT NOT NULL,
    command      TEXT NOT NULL,
    started_at   TEXT NOT NULL,
    duration_ms  INTEGER NOT NULL,
    succeeded    INTEGER NOT NULL,
    total        INTEGER NOT NULL
);

-- One row per targeted cup
CREATE TABLE IF NOT EXISTS dispatch_outcomes (
    dispatch_id  TEXT NOT NULL REFERENCES dispatches(id) ON DELETE CASCADE,
    cup_id       TEXT NOT NULL,
    outcome      TEXT NOT NULL,
    PRIMARY KEY (dispatch_id, cup_id)
);

CREATE INDEX IF NOT EXISTS idx_dispatches_started ON dispatches(started_at);
CREATE INDEX IF NOT EXISTS idx_dispatch_outcomes_cup ON dispatch_outcomes(cup_id);
`},
}

// currentSchemaVersion is the version the last migration produces.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Migrate applies every migration newer than the stored schema version.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.getSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("failed to apply schema v%d: %w", m.version, err)
		}
	}
	return nil
}

// getSchemaVersion returns the current schema version, or 0 if no schema exists.
func (db *DB) getSchemaVersion(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (db *DB) apply(ctx context.Context, m migration) error {
	return db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	return db.getSchemaVersion(ctx)
}
