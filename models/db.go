package models

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_project_id INTEGER NOT NULL REFERENCES projects(id),
	asset_type       TEXT NOT NULL,
	asset_name       TEXT NOT NULL,
	asset_size       INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(asset_project_id, asset_name)
);

CREATE TABLE IF NOT EXISTS chunks (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_text       TEXT NOT NULL,
	chunk_metadata   TEXT NOT NULL DEFAULT '{}',
	chunk_order      INTEGER NOT NULL,
	chunk_project_id INTEGER NOT NULL REFERENCES projects(id),
	chunk_asset_id   INTEGER NOT NULL REFERENCES assets(id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(chunk_project_id);
CREATE INDEX IF NOT EXISTS idx_assets_project ON assets(asset_project_id);
`

// OpenDB opens (creating if needed) the SQLite database at path and applies
// the schema. WAL mode keeps concurrent request handlers from tripping over
// each other.
func OpenDB(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return db, nil
}
