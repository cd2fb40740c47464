package puzzle

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
)

// Encode renders p as the fields of a row in the given schema.
func Encode(schema Schema, p *Puzzle) []string {
	out := make([]string, schema.width)
	set := func(c Column, v string) {
		if pos := schema.index[c]; pos >= 0 {
			out[pos] = v
		}
	}
	set(ColID, p.ID)
	set(ColFEN, p.FEN)
	set(ColMoves, p.MovesString())
	set(ColRating, strconv.Itoa(p.Rating))
	set(ColRatingDeviation, strconv.Itoa(p.RatingDeviation))
	set(ColPopularity, strconv.Itoa(p.Popularity))
	set(ColPlays, strconv.Itoa(p.Plays))
	set(ColThemes, strings.Join(p.Themes, " "))
	set(ColGameURL, p.GameURL)
	set(ColOpeningTags, strings.Join(p.OpeningTags, " "))
	return out
}

// EncodeLine renders p as one CSV line without the trailing newline.
func EncodeLine(schema Schema, p *Puzzle) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Encode(schema, p))
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}
