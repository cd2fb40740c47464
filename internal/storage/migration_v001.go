package storage

import "database/sql"

// migrateV001 creates the favorites table. Every statement uses IF NOT
// EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS favorites (
			puzzle_id  TEXT PRIMARY KEY,
			favorited  BOOLEAN NOT NULL DEFAULT 1,
			puzzle_row TEXT NOT NULL DEFAULT '',
			rating     INTEGER NOT NULL DEFAULT 0,
			themes     TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_favorites_favorited ON favorites(favorited)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_updated   ON favorites(updated_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
