package puzzle

import (
	"sort"

	"github.com/runnerr0/puzzler/internal/chess"
)

// Puzzle is one decoded corpus row. Values are never mutated after decoding.
type Puzzle struct {
	ID              string
	FEN             string
	Moves           []chess.Move // Moves[0] is the opponent's revealing move
	Rating          int
	RatingDeviation int
	Popularity      int
	Plays           int
	Themes          []string // sorted, de-duplicated
	OpeningTags     []string
	GameURL         string

	themeSet map[string]struct{}
}

// HasTheme reports whether tag is one of the puzzle's themes.
func (p *Puzzle) HasTheme(tag string) bool {
	if p.themeSet == nil {
		for _, t := range p.Themes {
			if t == tag {
				return true
			}
		}
		return false
	}
	_, ok := p.themeSet[tag]
	return ok
}

// SideToMove is the color to move in the stored FEN, i.e. the side that plays
// the revealing move.
func (p *Puzzle) SideToMove() chess.Color {
	c, err := chess.SideToMoveFromFEN(p.FEN)
	if err != nil {
		return chess.White
	}
	return c
}

// SolverColor is the side the puzzle is for: the one to move after the
// revealing move has been played.
func (p *Puzzle) SolverColor() chess.Color {
	return p.SideToMove().Other()
}

// SolverMoves counts the moves the solver has to find.
func (p *Puzzle) SolverMoves() int {
	return len(p.Moves) / 2
}

// URL links to the puzzle on lichess.
func (p *Puzzle) URL() string {
	return "https://lichess.org/training/" + p.ID
}

func (p *Puzzle) setThemes(tags []string) {
	set := make(map[string]struct{}, len(tags))
	themes := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := set[t]; dup {
			continue
		}
		set[t] = struct{}{}
		themes = append(themes, t)
	}
	sort.Strings(themes)
	p.Themes = themes
	p.themeSet = set
}
