// Package favorites tracks which puzzles the user has marked, backed by the
// SQLite store.
package favorites

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/storage"
)

// Store is the persistence the ledger writes through to.
type Store interface {
	SetFavorite(ctx context.Context, entry *storage.FavoriteEntry) error
	ListFavorites(ctx context.Context, q storage.FavoriteQuery) ([]storage.FavoriteEntry, error)
}

// Ledger is the in-memory view of the favorites table. It is safe for
// concurrent use: writes are serialized, and a scan reading a Snapshot never
// sees a toggle half-applied.
type Ledger struct {
	mu    sync.RWMutex
	store Store
	ids   map[string]struct{}
	log   zerolog.Logger
}

// Open loads the current favorites from store.
func Open(ctx context.Context, store Store, log zerolog.Logger) (*Ledger, error) {
	entries, err := store.ListFavorites(ctx, storage.FavoriteQuery{})
	if err != nil {
		return nil, err
	}
	l := &Ledger{store: store, ids: make(map[string]struct{}, len(entries)), log: log}
	for _, e := range entries {
		l.ids[e.PuzzleID] = struct{}{}
	}
	log.Debug().Int("favorites", len(l.ids)).Msg("Favorites loaded")
	return l, nil
}

// NewMemory returns a ledger that persists nothing.
func NewMemory() *Ledger {
	return &Ledger{ids: make(map[string]struct{}), log: zerolog.Nop()}
}

// IsFavorite reports whether id is currently favorited.
func (l *Ledger) IsFavorite(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// SetFavorite marks or unmarks a puzzle by ID. A stored row is kept.
func (l *Ledger) SetFavorite(ctx context.Context, id string, favorited bool) error {
	return l.set(ctx, &storage.FavoriteEntry{PuzzleID: id, Favorited: favorited})
}

// SetPuzzle marks or unmarks p, storing its row so favorites can be searched
// without the corpus.
func (l *Ledger) SetPuzzle(ctx context.Context, p *puzzle.Puzzle, favorited bool) error {
	return l.set(ctx, puzzleEntry(p, favorited))
}

// Toggle flips the favorite flag of p and returns the new value. The read and
// the write happen under one lock, so concurrent toggles of the same puzzle
// alternate rather than writing the same value twice.
func (l *Ledger) Toggle(ctx context.Context, p *puzzle.Puzzle) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, on := l.ids[p.ID]
	if err := l.setLocked(ctx, puzzleEntry(p, !on)); err != nil {
		return on, err
	}
	return !on, nil
}

func puzzleEntry(p *puzzle.Puzzle, favorited bool) *storage.FavoriteEntry {
	return &storage.FavoriteEntry{
		PuzzleID:  p.ID,
		Favorited: favorited,
		Row:       puzzle.EncodeLine(puzzle.SchemaV1, p),
		Rating:    p.Rating,
		Themes:    strings.Join(p.Themes, " "),
	}
}

func (l *Ledger) set(ctx context.Context, e *storage.FavoriteEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(ctx, e)
}

// setLocked writes e through to the store and updates the cache. l.mu must
// be held for writing.
func (l *Ledger) setLocked(ctx context.Context, e *storage.FavoriteEntry) error {
	if l.store != nil {
		if err := l.store.SetFavorite(ctx, e); err != nil {
			return err
		}
	}
	if e.Favorited {
		l.ids[e.PuzzleID] = struct{}{}
	} else {
		delete(l.ids, e.PuzzleID)
	}
	l.log.Debug().Str("puzzle_id", e.PuzzleID).Bool("favorited", e.Favorited).Msg("Favorite updated")
	return nil
}

// Forget empties the in-memory set without touching the store, for use after
// the favorites table has been cleared.
func (l *Ledger) Forget() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = make(map[string]struct{})
}

// ListFavoriteIDs returns the favorited IDs in sorted order.
func (l *Ledger) ListFavoriteIDs() []string {
	l.mu.RLock()
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	l.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of favorited puzzles.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Snapshot returns an immutable copy of the current favorites. Pass it to a
// scan so every row of that scan sees the same set.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make(map[string]struct{}, len(l.ids))
	for id := range l.ids {
		ids[id] = struct{}{}
	}
	return Snapshot{ids: ids}
}

// Snapshot is a frozen favorites set.
type Snapshot struct {
	ids map[string]struct{}
}

// IsFavorite reports whether id was favorited when the snapshot was taken.
func (s Snapshot) IsFavorite(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of IDs in the snapshot.
func (s Snapshot) Len() int {
	return len(s.ids)
}
