package session

import (
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations returns all schema changes in order.
func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_sessions_tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE TABLE IF NOT EXISTS documents (
					session_id TEXT PRIMARY KEY REFERENCES sessions (id) ON DELETE CASCADE,
					doc_id TEXT NOT NULL,
					filename TEXT NOT NULL,
					full_text TEXT NOT NULL,
					sections TEXT NOT NULL,
					content_hash TEXT NOT NULL,
					uploaded_at DATETIME NOT NULL
				);

				CREATE TABLE IF NOT EXISTS messages (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
					role TEXT NOT NULL,
					content TEXT NOT NULL,
					target TEXT NOT NULL DEFAULT '',
					model TEXT NOT NULL DEFAULT '',
					failed BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, seq);
				CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions (updated_at);
			`,
		},
		{
			Version: 2,
			Name:    "add_document_upload_seq",
			SQL: `
				ALTER TABLE documents ADD COLUMN upload_seq INTEGER NOT NULL DEFAULT 0;
			`,
		},
	}
}

// runMigrations applies every migration newer than the recorded version.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations() {
		if m.Version <= current {
			continue
		}
		if err := runMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
