package chess

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/pgn/v2"
)

// ErrIllegal is returned when a move is not legal in the position.
var ErrIllegal = errors.New("illegal move")

// Position is a playable board state backed by pgn.GameState.
type Position struct {
	state *pgn.GameState
}

// FromFEN parses a FEN string into a Position.
func FromFEN(fen string) (*Position, error) {
	if len(strings.Fields(fen)) < 2 {
		return nil, fmt.Errorf("invalid FEN %q", fen)
	}
	key, err := pgn.PackedPositionFromFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	packed, err := pgn.ParsePackedPosition(key)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	state := packed.Unpack()
	if state == nil {
		return nil, fmt.Errorf("invalid FEN %q: cannot unpack", fen)
	}
	return &Position{state: state}, nil
}

// SideToMoveFromFEN reads the active-color field of a FEN string without
// building a board.
func SideToMoveFromFEN(fen string) (Color, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return White, fmt.Errorf("invalid FEN %q: missing side to move", fen)
	}
	if strings.Count(fields[0], "/") != 7 {
		return White, fmt.Errorf("invalid FEN %q: board needs 8 ranks", fen)
	}
	switch fields[1] {
	case "w":
		return White, nil
	case "b":
		return Black, nil
	}
	return White, fmt.Errorf("invalid FEN %q: side to move %q", fen, fields[1])
}

// Clone returns an independent copy of the position.
func (p *Position) Clone() *Position {
	return &Position{state: p.state.Pack().Unpack()}
}

// FEN renders the position.
func (p *Position) FEN() string {
	return p.state.ToFEN()
}

// SideToMove reports which color is to play.
func (p *Position) SideToMove() Color {
	c, err := SideToMoveFromFEN(p.FEN())
	if err != nil {
		return White
	}
	return c
}

// LegalMoves lists every legal move in coordinate notation.
func (p *Position) LegalMoves() []Move {
	mvs := pgn.GenerateLegalMoves(p.state)
	board := p.board()
	out := make([]Move, 0, len(mvs))
	for _, mv := range mvs {
		out = append(out, fromPGN(mv, board))
	}
	return out
}

// IsLegal reports whether m, including its promotion piece, is legal.
func (p *Position) IsLegal(m Move) bool {
	_, ok := p.find(m)
	return ok
}

// NeedsPromotion reports whether m, given without a promotion piece, names a
// legal pawn move to the last rank.
func (p *Position) NeedsPromotion(m Move) bool {
	if m.Promo != 0 {
		return false
	}
	for _, mv := range pgn.GenerateLegalMoves(p.state) {
		if int(mv.From) == int(m.From) && int(mv.To) == int(m.To) && promoLetter(mv) != 0 {
			return true
		}
	}
	return false
}

// Apply plays m on the position. The position is unchanged on error.
func (p *Position) Apply(m Move) error {
	mv, ok := p.find(m)
	if !ok {
		return fmt.Errorf("%w: %s", ErrIllegal, m)
	}
	if err := pgn.ApplyMove(p.state, mv); err != nil {
		return fmt.Errorf("apply %s: %w", m, err)
	}
	return nil
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.state.IsInCheck()
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.state.IsInCheck() && len(pgn.GenerateLegalMoves(p.state)) == 0
}

// MatesAfter reports whether playing m leaves the opponent checkmated.
func (p *Position) MatesAfter(m Move) bool {
	next := p.Clone()
	if err := next.Apply(m); err != nil {
		return false
	}
	return next.IsCheckmate()
}

func (p *Position) find(m Move) (pgn.Mv, bool) {
	board := p.board()
	for _, mv := range pgn.GenerateLegalMoves(p.state) {
		if fromPGN(mv, board) == m {
			return mv, true
		}
	}
	return pgn.Mv{}, false
}

func (p *Position) board() *[8][8]byte {
	b, err := parseBoard(p.FEN())
	if err != nil {
		return nil
	}
	return &b
}

// fromPGN converts a generated move to coordinate notation. A castle encoded
// as the king capturing its own rook becomes the king's two-square step.
func fromPGN(mv pgn.Mv, board *[8][8]byte) Move {
	m := Move{From: Square(int(mv.From)), To: Square(int(mv.To)), Promo: promoLetter(mv)}
	if board == nil || m.From.Rank() != m.To.Rank() {
		return m
	}
	king, rook := pieceAt(board, m.From), pieceAt(board, m.To)
	castle := (king == 'K' && rook == 'R' && m.From.Rank() == 0) ||
		(king == 'k' && rook == 'r' && m.From.Rank() == 7)
	if !castle {
		return m
	}
	if m.To.File() > m.From.File() {
		m.To = Square(m.From.Rank()*8 + 6)
	} else {
		m.To = Square(m.From.Rank()*8 + 2)
	}
	return m
}

func promoLetter(mv pgn.Mv) byte {
	switch mv.Promo {
	case pgn.PromoQueen:
		return 'q'
	case pgn.PromoRook:
		return 'r'
	case pgn.PromoBishop:
		return 'b'
	case pgn.PromoKnight:
		return 'n'
	}
	return 0
}
