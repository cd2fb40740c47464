package chess

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned when a string is not a coordinate-notation move.
var ErrInvalidMove = errors.New("invalid coordinate move")

const (
	files = "abcdefgh"
	ranks = "12345678"
)

// Square indexes the board from a1 (0) to h8 (63), file-major within a rank.
type Square int8

// NoSquare marks an absent square.
const NoSquare Square = -1

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return Square(int(r-'1')*8 + int(f-'a')), nil
}

// File returns 0 for the a-file through 7 for the h-file.
func (s Square) File() int { return int(s) % 8 }

// Rank returns 0 for the first rank through 7 for the eighth.
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) String() string {
	if s < 0 || s > 63 {
		return "-"
	}
	return string(files[s.File()]) + string(ranks[s.Rank()])
}

// Move is a move in coordinate (UCI) notation. Promo is 0 or one of 'q', 'r', 'b', 'n'.
type Move struct {
	From  Square
	To    Square
	Promo byte
}

// ParseMove parses coordinate notation: origin, destination and an optional
// promotion piece ("e2e4", "e7e8q"). Upper-case promotion letters are accepted.
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	if from == to {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		p, ok := NormalizePromo(s[4])
		if !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
		}
		m.Promo = p
	}
	return m, nil
}

// MustParseMove is ParseMove for literals known to be valid.
func MustParseMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NormalizePromo lower-cases a promotion letter and reports whether it names
// a piece a pawn may promote to.
func NormalizePromo(c byte) (byte, bool) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	switch c {
	case 'q', 'r', 'b', 'n':
		return c, true
	}
	return 0, false
}

// WithPromo returns a copy of m promoting to piece.
func (m Move) WithPromo(piece byte) Move {
	m.Promo = piece
	return m
}

func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promo != 0 {
		s += string(m.Promo)
	}
	return s
}

// Color is a side in a chess game.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "w"/"white" and "b"/"black".
func ParseColor(s string) (Color, error) {
	switch s {
	case "w", "white", "White":
		return White, nil
	case "b", "black", "Black":
		return Black, nil
	}
	return White, fmt.Errorf("invalid color %q", s)
}
