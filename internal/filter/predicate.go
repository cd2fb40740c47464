package filter

import (
	"github.com/runnerr0/puzzler/internal/puzzle"
)

// FavoriteSource answers favorite lookups for the favorites-only constraint.
// Implementations must be safe to call from a scanning goroutine.
type FavoriteSource interface {
	IsFavorite(id string) bool
}

// Predicate is a compiled Query. It only inspects the puzzle it is given, so
// a scanner can evaluate it row by row.
type Predicate struct {
	checks []func(*puzzle.Puzzle) bool
	never  bool
}

// Compile turns q into a Predicate. favs may be nil unless q.FavoritesOnly is
// set; a favorites-only query without a source matches nothing.
func Compile(q Query, favs FavoriteSource) Predicate {
	var p Predicate

	if len(q.IDs) > 0 {
		ids := make(SeenSet, len(q.IDs))
		for _, id := range q.IDs {
			ids.Add(id)
		}
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return ids.Has(pz.ID)
		})
	}

	if r := q.Rating; r != nil {
		if r.Min > r.Max {
			return Predicate{never: true}
		}
		rng := *r
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return rng.Contains(pz.Rating)
		})
	}

	if q.MinPopularity != nil {
		floor := *q.MinPopularity
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return pz.Popularity >= floor
		})
	}

	if len(q.Themes) > 0 {
		themes := append([]string(nil), q.Themes...)
		if q.ThemeMatch == MatchAll {
			p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
				for _, t := range themes {
					if !pz.HasTheme(t) {
						return false
					}
				}
				return true
			})
		} else {
			p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
				for _, t := range themes {
					if pz.HasTheme(t) {
						return true
					}
				}
				return false
			})
		}
	}

	if q.Side != SideAny {
		side := q.Side
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return side.allows(pz.SolverColor())
		})
	}

	if len(q.OpeningPrefix) > 0 {
		prefix := append([]string(nil), q.OpeningPrefix...)
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return hasPrefix(pz.OpeningTags, prefix)
		})
	}

	if q.ExcludeSeen && len(q.Seen) > 0 {
		seen := make(SeenSet, len(q.Seen))
		for id := range q.Seen {
			seen.Add(id)
		}
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return !seen.Has(pz.ID)
		})
	}

	// Favorites last: it is the only check that leaves the record.
	if q.FavoritesOnly {
		if favs == nil {
			return Predicate{never: true}
		}
		p.checks = append(p.checks, func(pz *puzzle.Puzzle) bool {
			return favs.IsFavorite(pz.ID)
		})
	}

	return p
}

// MatchEverything returns a predicate accepting every puzzle.
func MatchEverything() Predicate {
	return Predicate{}
}

// Matches evaluates the predicate against one puzzle.
func (p Predicate) Matches(pz *puzzle.Puzzle) bool {
	if p.never || pz == nil {
		return false
	}
	for _, check := range p.checks {
		if !check(pz) {
			return false
		}
	}
	return true
}

// MatchesNothing reports whether the predicate can be shown to reject every
// puzzle without looking at any, letting a scanner skip the corpus.
func (p Predicate) MatchesNothing() bool {
	return p.never
}

func hasPrefix(tags, prefix []string) bool {
	if len(prefix) > len(tags) {
		return false
	}
	for i, want := range prefix {
		if tags[i] != want {
			return false
		}
	}
	return true
}
