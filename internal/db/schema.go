package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 2

// schemaDDL contains the CREATE TABLE statements for the current schema.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	output_dir  TEXT NOT NULL,
	base_url    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	attachments INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	workspaces  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exported_files (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	workspace_ordinal  INTEGER NOT NULL,
	workspace_name     TEXT NOT NULL,
	attachment_ordinal INTEGER NOT NULL,
	object_id          INTEGER NOT NULL DEFAULT 0,
	name               TEXT NOT NULL,
	dir                TEXT NOT NULL,
	meta_path          TEXT NOT NULL,
	data_path          TEXT NOT NULL,
	extension          TEXT NOT NULL,
	declared_size      INTEGER NOT NULL DEFAULT 0,
	written_bytes      INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL,
	digest             TEXT NOT NULL DEFAULT '',
	UNIQUE(run_id, workspace_ordinal, attachment_ordinal)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_exported_files_run_id ON exported_files(run_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they migrate TO.
// For example, migrations[2] migrates from version 1 to version 2.
var migrations = map[int]func(tx *sql.Tx) error{
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(`ALTER TABLE exported_files ADD COLUMN digest TEXT NOT NULL DEFAULT ''`)
		return err
	},
}

// Migrate checks the current schema version and applies any pending migrations
// sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
