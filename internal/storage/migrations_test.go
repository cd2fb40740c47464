package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	for _, table := range []string{"favorites", "attempts", "schema_migrations"} {
		assert.True(t, tableExists(t, db, table), "table %s should exist", table)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedIndexes := []string{
		"idx_favorites_favorited",
		"idx_favorites_updated",
		"idx_attempts_puzzle",
		"idx_attempts_ts",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "should have exactly 2 migrations recorded after double-run")
}

func TestMigrationRunner_Incremental(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.RunTo(1))
	v, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.True(t, tableExists(t, db, "favorites"))
	assert.False(t, tableExists(t, db, "attempts"))

	_, err = db.Exec("INSERT INTO favorites (puzzle_id) VALUES ('00008')")
	require.NoError(t, err)

	require.NoError(t, runner.Run())
	v, err = runner.Version()
	require.NoError(t, err)
	assert.Equal(t, runner.Latest(), v)
	assert.True(t, tableExists(t, db, "attempts"))

	// Data from the earlier version survives.
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM favorites").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrationRunner_SchemaMigrationsTracking(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var version int
	var name string
	err := db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "favorites", name)
}

func TestMigrationRunner_KeepsJournalMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzler.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewMigrationRunner(db).Run())

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "delete", journalMode)
}

func TestMigrationRunner_AttemptResultConstraint(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec("INSERT INTO attempts (puzzle_id, result) VALUES ('x', 'abandoned')")
	assert.Error(t, err, "result CHECK constraint should reject unknown values")

	_, err = db.Exec("INSERT INTO attempts (puzzle_id, result) VALUES ('x', 'solved')")
	assert.NoError(t, err)
}
