package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// timeFormat is fixed-width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store defines the interface for puzzler data operations.
type Store interface {
	SetFavorite(ctx context.Context, entry *FavoriteEntry) error
	GetFavorite(ctx context.Context, puzzleID string) (*FavoriteEntry, error)
	ListFavorites(ctx context.Context, q FavoriteQuery) ([]FavoriteEntry, error)
	CountFavorites(ctx context.Context) (int64, error)
	PruneUnfavorited(ctx context.Context, olderThan time.Time) (int64, error)
	RecordAttempt(ctx context.Context, rec *AttemptRecord) error
	ListAttempts(ctx context.Context, puzzleID string, limit int) ([]AttemptRecord, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	upsertFavorite *sql.Stmt
	getFavorite    *sql.Stmt
	insertAttempt  *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	// An empty row never overwrites a stored one: unfavoriting by ID alone
	// keeps the row for a later re-favorite.
	s.upsertFavorite, err = s.db.Prepare(`
		INSERT INTO favorites (puzzle_id, favorited, puzzle_row, rating, themes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(puzzle_id) DO UPDATE SET
			favorited  = excluded.favorited,
			puzzle_row = CASE WHEN excluded.puzzle_row <> '' THEN excluded.puzzle_row ELSE favorites.puzzle_row END,
			rating     = CASE WHEN excluded.puzzle_row <> '' THEN excluded.rating ELSE favorites.rating END,
			themes     = CASE WHEN excluded.puzzle_row <> '' THEN excluded.themes ELSE favorites.themes END,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.getFavorite, err = s.db.Prepare(`
		SELECT puzzle_id, favorited, puzzle_row, rating, themes, created_at, updated_at
		FROM favorites WHERE puzzle_id = ?
	`)
	if err != nil {
		return err
	}

	s.insertAttempt, err = s.db.Prepare(`
		INSERT INTO attempts (puzzle_id, result, moves, ts) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		timeFormat,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// SetFavorite inserts or updates the favorite flag for entry.PuzzleID.
// UpdatedAt defaults to now.
func (s *SQLiteStore) SetFavorite(ctx context.Context, entry *FavoriteEntry) error {
	if entry.PuzzleID == "" {
		return fmt.Errorf("set favorite: empty puzzle id")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.UpdatedAt
	}

	_, err := s.upsertFavorite.ExecContext(ctx,
		entry.PuzzleID, entry.Favorited, entry.Row, entry.Rating, entry.Themes,
		formatTimestamp(entry.CreatedAt), formatTimestamp(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("set favorite %s: %w", entry.PuzzleID, err)
	}
	return nil
}

// GetFavorite retrieves the entry for one puzzle.
func (s *SQLiteStore) GetFavorite(ctx context.Context, puzzleID string) (*FavoriteEntry, error) {
	e, err := scanFavorite(s.getFavorite.QueryRowContext(ctx, puzzleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("favorite %s: %w", puzzleID, ErrNotFound)
		}
		return nil, fmt.Errorf("get favorite: %w", err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row rowScanner) (*FavoriteEntry, error) {
	var e FavoriteEntry
	var createdStr, updatedStr string
	if err := row.Scan(&e.PuzzleID, &e.Favorited, &e.Row, &e.Rating, &e.Themes, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	e.CreatedAt, _ = parseTimestamp(createdStr)
	e.UpdatedAt, _ = parseTimestamp(updatedStr)
	return &e, nil
}

// ListFavorites returns entries ordered by most recent change.
func (s *SQLiteStore) ListFavorites(ctx context.Context, q FavoriteQuery) ([]FavoriteEntry, error) {
	var b strings.Builder
	var args []any

	b.WriteString(`SELECT puzzle_id, favorited, puzzle_row, rating, themes, created_at, updated_at FROM favorites`)
	if !q.IncludeUnfavorited {
		b.WriteString(` WHERE favorited = 1`)
	}
	b.WriteString(` ORDER BY updated_at DESC, puzzle_id`)
	if q.Limit > 0 {
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []FavoriteEntry
	for rows.Next() {
		e, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CountFavorites returns the number of currently favorited puzzles.
func (s *SQLiteStore) CountFavorites(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites WHERE favorited = 1").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return n, nil
}

// PruneUnfavorited deletes entries that were unfavorited before olderThan.
func (s *SQLiteStore) PruneUnfavorited(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE favorited = 0 AND updated_at < ?", formatTimestamp(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("prune favorites: %w", err)
	}
	return res.RowsAffected()
}

// CountPrunable reports how many entries PruneUnfavorited would delete.
func (s *SQLiteStore) CountPrunable(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites WHERE favorited = 0 AND updated_at < ?", formatTimestamp(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prunable: %w", err)
	}
	return n, nil
}

// RecordAttempt stores a finished attempt. Timestamp defaults to now.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, rec *AttemptRecord) error {
	switch rec.Result {
	case ResultSolved, ResultFailed, ResultRevealed:
	default:
		return fmt.Errorf("record attempt: invalid result %q", rec.Result)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	res, err := s.insertAttempt.ExecContext(ctx, rec.PuzzleID, rec.Result, rec.Moves, formatTimestamp(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ListAttempts returns the most recent attempts, optionally for one puzzle.
func (s *SQLiteStore) ListAttempts(ctx context.Context, puzzleID string, limit int) ([]AttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT id, puzzle_id, result, moves, ts FROM attempts"
	var args []any
	if puzzleID != "" {
		query += " WHERE puzzle_id = ?"
		args = append(args, puzzleID)
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		var tsStr string
		if err := rows.Scan(&r.ID, &r.PuzzleID, &r.Result, &r.Moves, &tsStr); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		r.Timestamp, _ = parseTimestamp(tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PurgeFavorites deletes every favorite entry.
func (s *SQLiteStore) PurgeFavorites(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM favorites"); err != nil {
		return fmt.Errorf("purge favorites: %w", err)
	}
	return nil
}

// PurgeAll deletes all favorites and attempt history.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM favorites",
		"DELETE FROM attempts",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(favorited = 1), 0), COALESCE(SUM(favorited = 0), 0) FROM favorites",
	).Scan(&stats.Favorites, &stats.Unfavorited)
	if err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT result, COUNT(*) FROM attempts GROUP BY result")
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	for rows.Next() {
		var result string
		var n int64
		if err := rows.Scan(&result, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Attempts += n
		switch result {
		case ResultSolved:
			stats.Solved = n
		case ResultFailed:
			stats.Failed = n
		case ResultRevealed:
			stats.Revealed = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Attempts > 0 {
		var lastStr string
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(ts) FROM attempts").Scan(&lastStr); err != nil {
			return nil, fmt.Errorf("last attempt: %w", err)
		}
		stats.LastAttempt, _ = parseTimestamp(lastStr)
	}

	themes, err := s.topThemes(ctx, 10)
	if err != nil {
		return nil, err
	}
	stats.TopThemes = themes

	return stats, nil
}

// topThemes counts themes across favorited puzzles. Themes are stored as a
// space separated list, so the split happens here rather than in SQL.
func (s *SQLiteStore) topThemes(ctx context.Context, n int) ([]ThemeCount, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT themes FROM favorites WHERE favorited = 1")
	if err != nil {
		return nil, fmt.Errorf("top themes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var themes string
		if err := rows.Scan(&themes); err != nil {
			return nil, err
		}
		for _, t := range strings.Fields(themes) {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ThemeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, ThemeCount{Theme: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Theme < out[j].Theme
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.upsertFavorite, s.getFavorite, s.insertAttempt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
