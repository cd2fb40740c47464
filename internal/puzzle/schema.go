package puzzle

import (
	"fmt"
	"strings"
)

// Column identifies a logical field of a corpus row.
type Column int

const (
	ColID Column = iota
	ColFEN
	ColMoves
	ColRating
	ColRatingDeviation
	ColPopularity
	ColPlays
	ColThemes
	ColGameURL
	ColOpeningTags
	numColumns
)

// columnNames are the header names used by the lichess puzzle export.
var columnNames = [numColumns]string{
	ColID:              "PuzzleId",
	ColFEN:             "FEN",
	ColMoves:           "Moves",
	ColRating:          "Rating",
	ColRatingDeviation: "RatingDeviation",
	ColPopularity:      "Popularity",
	ColPlays:           "NbPlays",
	ColThemes:          "Themes",
	ColGameURL:         "GameUrl",
	ColOpeningTags:     "OpeningTags",
}

var requiredColumns = []Column{ColID, ColFEN, ColMoves, ColRating}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// Schema maps logical columns to positions in a row. It is built and
// validated once per scan; decoding never guesses positions.
type Schema struct {
	Version int // 0 for a schema read from a header row
	index   [numColumns]int
	width   int
}

var (
	// SchemaV1 is the current lichess layout, OpeningTags last.
	SchemaV1 = mustSchema(1, []Column{
		ColID, ColFEN, ColMoves, ColRating, ColRatingDeviation,
		ColPopularity, ColPlays, ColThemes, ColGameURL, ColOpeningTags,
	})

	// SchemaLegacy is the layout of exports published before opening tags
	// were added.
	SchemaLegacy = mustSchema(-1, []Column{
		ColID, ColFEN, ColMoves, ColRating, ColRatingDeviation,
		ColPopularity, ColPlays, ColThemes, ColGameURL,
	})
)

// DefaultSchema is used for headerless corpus files.
var DefaultSchema = SchemaV1

func newSchema(version int, order []Column) (Schema, error) {
	s := Schema{Version: version, width: len(order)}
	for i := range s.index {
		s.index[i] = -1
	}
	for pos, c := range order {
		if c < 0 || c >= numColumns {
			continue
		}
		if s.index[c] != -1 {
			return Schema{}, fmt.Errorf("%w: duplicate column %s", ErrSchema, c)
		}
		s.index[c] = pos
	}
	for _, c := range requiredColumns {
		if s.index[c] == -1 {
			return Schema{}, fmt.Errorf("%w: missing required column %s", ErrSchema, c)
		}
	}
	return s, nil
}

func mustSchema(version int, order []Column) Schema {
	s, err := newSchema(version, order)
	if err != nil {
		panic(err)
	}
	return s
}

// IsHeader reports whether a record looks like the corpus header row.
func IsHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(cleanHeader(record[0]), columnNames[ColID])
}

// SchemaFromHeader builds a schema from a header row. Unknown columns are
// ignored; missing optional columns decode as zero values.
func SchemaFromHeader(header []string) (Schema, error) {
	order := make([]Column, len(header))
	for i, name := range header {
		order[i] = -1
		name = cleanHeader(name)
		for c, known := range columnNames {
			if strings.EqualFold(name, known) {
				order[i] = Column(c)
				break
			}
		}
	}
	return newSchema(0, order)
}

// Has reports whether the schema carries column c.
func (s Schema) Has(c Column) bool {
	return s.index[c] >= 0
}

// Width is the number of fields in a row of this schema.
func (s Schema) Width() int {
	return s.width
}

// Header returns the header row for the schema.
func (s Schema) Header() []string {
	out := make([]string, s.width)
	for c, pos := range s.index {
		if pos >= 0 {
			out[pos] = columnNames[c]
		}
	}
	return out
}

func (s Schema) field(fields []string, c Column) (string, bool) {
	pos := s.index[c]
	if pos < 0 || pos >= len(fields) {
		return "", false
	}
	return strings.TrimSpace(fields[pos]), true
}

func cleanHeader(name string) string {
	return strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
}
