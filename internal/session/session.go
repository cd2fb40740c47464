// Package session holds the ordered result of a corpus search and the cursor
// used to walk it.
package session

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/puzzle"
)

// SearchSession is the ordered list of matches produced by one search. The
// match list is immutable once the session is built; only the cursor moves.
type SearchSession struct {
	ID        uuid.UUID
	StartedAt time.Time

	// Query is informational; the scanner only sees the compiled predicate.
	Query filter.Query

	// Partial is set when the scan stopped before reaching the end of the
	// corpus (cancellation or a mid-stream read failure).
	Partial        bool
	RowsScanned    int
	DecodeFailures int
	Err            error

	// Shuffled is set when the matches were reordered by Select. Seed is the
	// shuffle seed and is meaningful only when Shuffled is set; zero is a
	// valid seed.
	Shuffled bool
	Seed     uint64

	base    []*puzzle.Puzzle // scan order
	puzzles []*puzzle.Puzzle
	cursor  int
	seen    filter.SeenSet
}

// New builds a session over matches. The slice is owned by the session.
func New(matches []*puzzle.Puzzle) *SearchSession {
	return &SearchSession{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		base:      matches,
		puzzles:   matches,
		cursor:    -1,
		seen:      make(filter.SeenSet),
	}
}

// Len returns the number of matches.
func (s *SearchSession) Len() int {
	return len(s.puzzles)
}

// Empty reports whether the search produced no matches.
func (s *SearchSession) Empty() bool {
	return len(s.puzzles) == 0
}

// Puzzles returns the match list in session order.
func (s *SearchSession) Puzzles() []*puzzle.Puzzle {
	return s.puzzles
}

// Position returns the cursor index, or -1 before the first selection.
func (s *SearchSession) Position() int {
	return s.cursor
}

// Current returns the puzzle under the cursor.
func (s *SearchSession) Current() (*puzzle.Puzzle, bool) {
	if s.cursor < 0 || s.cursor >= len(s.puzzles) {
		return nil, false
	}
	return s.puzzles[s.cursor], true
}

// HasNext reports whether Advance(Next) would move.
func (s *SearchSession) HasNext() bool {
	return s.cursor+1 < len(s.puzzles)
}

// HasPrevious reports whether Advance(Previous) would move.
func (s *SearchSession) HasPrevious() bool {
	return s.cursor > 0
}

// Seen returns the IDs of every puzzle the cursor has landed on. The caller
// may feed it into a later Query to skip them.
func (s *SearchSession) Seen() filter.SeenSet {
	out := make(filter.SeenSet, len(s.seen))
	for id := range s.seen {
		out.Add(id)
	}
	return out
}

func (s *SearchSession) moveTo(i int) *puzzle.Puzzle {
	s.cursor = i
	p := s.puzzles[i]
	s.seen.Add(p.ID)
	return p
}

// Strategy picks how the first puzzle is chosen.
type Strategy struct {
	random bool
	seed   uint64
}

// FirstMatch keeps corpus order.
var FirstMatch = Strategy{}

// RandomWithSeed shuffles the matches with a deterministic generator.
func RandomWithSeed(seed uint64) Strategy {
	return Strategy{random: true, seed: seed}
}

// NewSeed returns a seed for callers that want a different order each run.
func NewSeed() uint64 {
	return rand.Uint64()
}

// Select orders the session according to strategy and places the cursor on
// the first puzzle. It returns nil, false when the session is empty.
func Select(s *SearchSession, strategy Strategy) (*puzzle.Puzzle, bool) {
	if s.Empty() {
		return nil, false
	}
	// Always start from scan order so a repeated seed repeats the order.
	s.puzzles = s.base
	s.Shuffled = strategy.random
	s.Seed = 0
	if strategy.random {
		s.Seed = strategy.seed
		shuffled := append([]*puzzle.Puzzle(nil), s.base...)
		r := rand.New(rand.NewPCG(strategy.seed, strategy.seed^0x9e3779b97f4a7c15))
		r.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		s.puzzles = shuffled
	}
	return s.moveTo(0), true
}

// Direction for Advance.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Advance moves the cursor one step. At either end it returns nil, false and
// leaves the cursor where it was.
func Advance(s *SearchSession, d Direction) (*puzzle.Puzzle, bool) {
	switch d {
	case Next:
		if !s.HasNext() {
			return nil, false
		}
		return s.moveTo(s.cursor + 1), true
	case Previous:
		if !s.HasPrevious() {
			return nil, false
		}
		return s.moveTo(s.cursor - 1), true
	}
	return nil, false
}

// Jump places the cursor on the puzzle with the given ID.
func Jump(s *SearchSession, id string) (*puzzle.Puzzle, bool) {
	for i, p := range s.puzzles {
		if p.ID == id {
			return s.moveTo(i), true
		}
	}
	return nil, false
}
