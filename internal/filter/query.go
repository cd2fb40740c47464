package filter

import (
	"fmt"
	"strings"

	"github.com/runnerr0/puzzler/internal/chess"
)

// ThemeMatch selects how Query.Themes is applied.
type ThemeMatch int

const (
	MatchAny ThemeMatch = iota // at least one theme present
	MatchAll                   // every theme present
)

// ParseThemeMatch accepts "any" and "all".
func ParseThemeMatch(s string) (ThemeMatch, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return MatchAny, nil
	case "all":
		return MatchAll, nil
	}
	return MatchAny, fmt.Errorf("invalid theme match %q (use any or all)", s)
}

func (m ThemeMatch) String() string {
	if m == MatchAll {
		return "all"
	}
	return "any"
}

// Side constrains which color the solver plays.
type Side int

const (
	SideAny Side = iota
	SideWhite
	SideBlack
)

// ParseSide accepts "any", "white" and "black".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return SideAny, nil
	case "w", "white":
		return SideWhite, nil
	case "b", "black":
		return SideBlack, nil
	}
	return SideAny, fmt.Errorf("invalid side %q (use any, white or black)", s)
}

func (s Side) String() string {
	switch s {
	case SideWhite:
		return "white"
	case SideBlack:
		return "black"
	}
	return "any"
}

func (s Side) allows(c chess.Color) bool {
	switch s {
	case SideWhite:
		return c == chess.White
	case SideBlack:
		return c == chess.Black
	}
	return true
}

// Range is an inclusive rating interval. Min > Max matches nothing.
type Range struct {
	Min int
	Max int
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// SeenSet holds puzzle IDs already shown in the current session.
type SeenSet map[string]struct{}

// Add records id.
func (s SeenSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id was recorded.
func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Query is the user's filter configuration. The zero Query matches every
// puzzle; nil pointer fields are unconstrained.
type Query struct {
	IDs           []string // restricts to these puzzle IDs when non-empty
	Rating        *Range
	Themes        []string
	ThemeMatch    ThemeMatch
	OpeningPrefix []string
	Side          Side
	MinPopularity *int
	Limit         int // 0 means unlimited
	FavoritesOnly bool
	ExcludeSeen   bool
	Seen          SeenSet
}

// IsEmpty reports whether the query places no constraint on puzzles.
func (q Query) IsEmpty() bool {
	return len(q.IDs) == 0 &&
		q.Rating == nil &&
		len(q.Themes) == 0 &&
		len(q.OpeningPrefix) == 0 &&
		q.Side == SideAny &&
		q.MinPopularity == nil &&
		!q.FavoritesOnly &&
		(!q.ExcludeSeen || len(q.Seen) == 0)
}

// WithRating returns a copy constrained to [min, max].
func (q Query) WithRating(min, max int) Query {
	q.Rating = &Range{Min: min, Max: max}
	return q
}

// WithMinPopularity returns a copy with a popularity floor.
func (q Query) WithMinPopularity(v int) Query {
	q.MinPopularity = &v
	return q
}

func (q Query) String() string {
	var parts []string
	if len(q.IDs) > 0 {
		parts = append(parts, "id "+strings.Join(q.IDs, ","))
	}
	if q.Rating != nil {
		parts = append(parts, fmt.Sprintf("rating %d-%d", q.Rating.Min, q.Rating.Max))
	}
	if len(q.Themes) > 0 {
		parts = append(parts, fmt.Sprintf("themes %s(%s)", q.ThemeMatch, strings.Join(q.Themes, ",")))
	}
	if len(q.OpeningPrefix) > 0 {
		parts = append(parts, "opening "+strings.Join(q.OpeningPrefix, "/"))
	}
	if q.Side != SideAny {
		parts = append(parts, "side "+q.Side.String())
	}
	if q.MinPopularity != nil {
		parts = append(parts, fmt.Sprintf("popularity>=%d", *q.MinPopularity))
	}
	if q.FavoritesOnly {
		parts = append(parts, "favorites")
	}
	if len(parts) == 0 {
		return "any puzzle"
	}
	return strings.Join(parts, ", ")
}
