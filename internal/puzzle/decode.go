package puzzle

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/runnerr0/puzzler/internal/chess"
)

// Decode builds a Puzzle from the fields of one corpus row.
func Decode(schema Schema, fields []string) (*Puzzle, error) {
	for _, c := range requiredColumns {
		v, ok := schema.field(fields, c)
		if !ok || v == "" {
			return nil, &DecodeError{Kind: ErrMalformedRow, Column: c.String()}
		}
	}

	p := &Puzzle{}
	p.ID, _ = schema.field(fields, ColID)
	p.FEN, _ = schema.field(fields, ColFEN)
	p.GameURL, _ = schema.field(fields, ColGameURL)
	if _, err := chess.SideToMoveFromFEN(p.FEN); err != nil {
		return nil, &DecodeError{Kind: ErrMalformedRow, Column: ColFEN.String(), Value: p.FEN, Err: err}
	}

	rawMoves, _ := schema.field(fields, ColMoves)
	tokens := strings.Fields(rawMoves)
	if len(tokens) == 0 {
		return nil, &DecodeError{Kind: ErrMalformedRow, Column: ColMoves.String()}
	}
	p.Moves = make([]chess.Move, len(tokens))
	for i, tok := range tokens {
		m, err := chess.ParseMove(tok)
		if err != nil {
			return nil, &DecodeError{Kind: ErrInvalidMove, Column: ColMoves.String(), Value: tok}
		}
		p.Moves[i] = m
	}

	numbers := []struct {
		col Column
		dst *int
	}{
		{ColRating, &p.Rating},
		{ColRatingDeviation, &p.RatingDeviation},
		{ColPopularity, &p.Popularity},
		{ColPlays, &p.Plays},
	}
	for _, n := range numbers {
		v, ok := schema.field(fields, n.col)
		if !ok {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, &DecodeError{Kind: ErrInvalidNumber, Column: n.col.String(), Value: v, Err: err}
		}
		*n.dst = i
	}

	themes, _ := schema.field(fields, ColThemes)
	p.setThemes(strings.Fields(themes))

	openings, _ := schema.field(fields, ColOpeningTags)
	p.OpeningTags = SplitOpeningTags(openings)

	return p, nil
}

// DecodeLine decodes a single CSV-formatted row.
func DecodeLine(schema Schema, line string) (*Puzzle, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return nil, &DecodeError{Kind: ErrMalformedRow, Err: err}
	}
	return Decode(schema, fields)
}

// SplitOpeningTags splits an opening tag list on whitespace and slashes,
// keeping the family-then-variation order.
func SplitOpeningTags(s string) []string {
	tags := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/'
	})
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// ParseThemes splits a whitespace or comma separated theme list.
func ParseThemes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// New builds a Puzzle from already-typed values. It applies the same
// invariants as Decode.
func New(id, fen string, moves []chess.Move, rating int, themes, openings []string) (*Puzzle, error) {
	if id == "" || fen == "" {
		return nil, &DecodeError{Kind: ErrMalformedRow}
	}
	if _, err := chess.SideToMoveFromFEN(fen); err != nil {
		return nil, &DecodeError{Kind: ErrMalformedRow, Column: ColFEN.String(), Value: fen, Err: err}
	}
	if len(moves) == 0 {
		return nil, &DecodeError{Kind: ErrMalformedRow, Column: ColMoves.String()}
	}
	p := &Puzzle{ID: id, FEN: fen, Moves: append([]chess.Move(nil), moves...), Rating: rating}
	p.setThemes(themes)
	p.OpeningTags = append([]string(nil), openings...)
	return p, nil
}

// MovesString renders the move list the way the corpus stores it.
func (p *Puzzle) MovesString() string {
	parts := make([]string, len(p.Moves))
	for i, m := range p.Moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

func (p *Puzzle) String() string {
	return fmt.Sprintf("%s (%d)", p.ID, p.Rating)
}
