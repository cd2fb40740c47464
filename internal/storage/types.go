package storage

import "time"

// FavoriteEntry is the persisted favorite flag for one puzzle. Unfavoriting
// keeps the row with Favorited=false so the timestamp of the change survives.
type FavoriteEntry struct {
	PuzzleID  string
	Favorited bool
	Row       string // corpus row, CSV-encoded in the lichess layout
	Rating    int
	Themes    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FavoriteQuery filters ListFavorites.
type FavoriteQuery struct {
	IncludeUnfavorited bool
	Limit              int
	Offset             int
}

// Attempt results.
const (
	ResultSolved   = "solved"
	ResultFailed   = "failed"
	ResultRevealed = "revealed"
)

// AttemptRecord is one finished solve attempt.
type AttemptRecord struct {
	ID        int64
	PuzzleID  string
	Result    string
	Moves     string // moves played, revealing moves included, space separated
	Timestamp time.Time
}

// Stats holds aggregate statistics about the puzzler database.
type Stats struct {
	Favorites         int64
	Unfavorited       int64
	Attempts          int64
	Solved            int64
	Failed            int64
	Revealed          int64
	LastAttempt       time.Time
	DatabaseSizeBytes int64
	TopThemes         []ThemeCount
}

// ThemeCount pairs a theme with the number of favorites carrying it.
type ThemeCount struct {
	Theme string
	Count int64
}
