package chess

import (
	"fmt"
	"strings"
)

// Diagram draws the piece placement of fen as text, with the given color at
// the bottom. Empty squares are dots.
func Diagram(fen string, bottom Color) (string, error) {
	board, err := parseBoard(fen)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 0; i < 8; i++ {
		r := i
		if bottom == Black {
			r = 7 - i
		}
		fmt.Fprintf(&b, "%c ", ranks[7-r])
		for j := 0; j < 8; j++ {
			f := j
			if bottom == Black {
				f = 7 - j
			}
			b.WriteByte(' ')
			b.WriteByte(board[r][f])
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ")
	for j := 0; j < 8; j++ {
		f := j
		if bottom == Black {
			f = 7 - j
		}
		b.WriteByte(' ')
		b.WriteByte(files[f])
	}
	b.WriteByte('\n')
	return b.String(), nil
}

// parseBoard reads the piece placement field of fen. board[0] is rank 8 and
// empty squares are dots.
func parseBoard(fen string) (board [8][8]byte, err error) {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return board, fmt.Errorf("invalid FEN %q", fen)
	}
	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return board, fmt.Errorf("invalid FEN %q: want 8 ranks, got %d", fen, len(rows))
	}
	for r, row := range rows {
		f := 0
		for i := 0; i < len(row); i++ {
			c := row[i]
			if c >= '1' && c <= '8' {
				for n := 0; n < int(c-'0') && f < 8; n++ {
					board[r][f] = '.'
					f++
				}
				continue
			}
			if f >= 8 {
				return board, fmt.Errorf("invalid FEN %q: rank %d too long", fen, 8-r)
			}
			board[r][f] = c
			f++
		}
		if f != 8 {
			return board, fmt.Errorf("invalid FEN %q: rank %d has %d squares", fen, 8-r, f)
		}
	}
	return board, nil
}

func pieceAt(board *[8][8]byte, sq Square) byte {
	return board[7-sq.Rank()][sq.File()]
}
