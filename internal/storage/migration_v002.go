package storage

import "database/sql"

// migrateV002 adds the attempt history.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			puzzle_id TEXT NOT NULL,
			result    TEXT NOT NULL CHECK (result IN ('solved', 'failed', 'revealed')),
			moves     TEXT NOT NULL DEFAULT '',
			ts        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_attempts_puzzle ON attempts(puzzle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ts     ON attempts(ts)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
