package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema step. SQL runs unless Apply is set.
type Migration struct {
	Version int
	Name    string
	SQL     string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// Migrations returns the schema history in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_notes_table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notes (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					content TEXT NOT NULL,
					summary TEXT,
					timestamp TEXT,
					tags TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes (timestamp);
			`,
		},
		{
			Version: 2,
			Name:    "add_notes_embedding_column",
			Apply: func(ctx context.Context, tx *sql.Tx) error {
				ok, err := hasColumn(ctx, tx, "notes", "embedding")
				if err != nil || ok {
					return err
				}
				_, err = tx.ExecContext(ctx, `ALTER TABLE notes ADD COLUMN embedding TEXT`)
				return err
			},
		},
		{
			Version: 3,
			Name:    "create_store_state",
			SQL: `
				CREATE TABLE IF NOT EXISTS store_state (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					generation INTEGER NOT NULL DEFAULT 0
				);

				INSERT OR IGNORE INTO store_state (id, generation) VALUES (1, 0);
			`,
		},
		{
			Version: 4,
			Name:    "create_captured_files",
			SQL: `
				CREATE TABLE IF NOT EXISTS captured_files (
					fingerprint TEXT PRIMARY KEY,
					path TEXT NOT NULL,
					note_id INTEGER,
					captured_at TEXT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_captured_files_path ON captured_files (path);
			`,
		},
	}
}

// RunMigrations applies every migration newer than the recorded schema version.
// Running it again is a no-op.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range Migrations() {
		if m.Version <= current {
			continue
		}
		if err := runMigration(ctx, db, m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

func runMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if m.Apply != nil {
		err = m.Apply(ctx, tx)
	} else {
		_, err = tx.ExecContext(ctx, m.SQL)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
