package cli

import (
	"bytes"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/puzzler/internal/config"
	"github.com/runnerr0/puzzler/internal/puzzle"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// Corpus rows used across command tests. Only the first four match the
// default rating window of 1250-1750.
const (
	rowKnight   = "00008,r1bqkb1r/pp2pppp/2n2n2/3p4/3P4/2N2N2/PPP1PPPP/R1BQKB1R w KQkq - 0 6,c3d5 f6d5,1300,75,92,413,opening short,https://lichess.org/abc#11,Queens_Pawn_Game Queens_Pawn_Game_Other_Variations"
	rowBackRank = "000aY,6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1,g8h8 a1a8,1500,80,95,5021,backRankMate mate mateIn1 oneMove,https://lichess.org/xyz#40,"
	rowOpening  = "00100,rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1,e2e4 e7e5 g1f3 b8c6,1700,90,80,100,opening long,https://lichess.org/def#1,Kings_Pawn_Game"
	rowPromote  = "00300,8/P6k/8/8/8/8/6K1/8 b - - 0 1,h7g7 a7a8q,1400,80,50,10,advancedPawn promotion,,"
	rowHard     = "00200,6k1/5ppp/8/8/8/8/5PPP/R5K1 b - - 0 1,g8h8 a1a8,2100,80,95,50,endgame mate,,"
	rowBroken   = "bad,row"
)

var defaultRows = []string{rowKnight, rowBackRank, rowOpening, rowPromote, rowHard, rowBroken}

// newTestApp builds an app over an in-memory database and a corpus file
// holding rows. With no rows the corpus file is not created.
func newTestApp(t *testing.T, rows ...string) *app {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Storage.Path = dir
	cfg.Corpus.Path = filepath.Join(dir, "puzzles.csv")
	cfg.Corpus.BatchSize = 2
	cfg.Engine.Path = filepath.Join(dir, "no-such-engine")

	if len(rows) > 0 {
		writeCorpus(t, cfg.Corpus.Path, rows...)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	rt, err := newApp(cfg, db, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

// writeCorpus writes a corpus file with the standard header.
func writeCorpus(t *testing.T, path string, rows ...string) {
	t.Helper()
	data := strings.Join(puzzle.SchemaV1.Header(), ",") + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func decodeRows(t *testing.T, rows ...string) []*puzzle.Puzzle {
	t.Helper()
	out := make([]*puzzle.Puzzle, len(rows))
	for i, row := range rows {
		p, err := puzzle.DecodeLine(puzzle.SchemaV1, row)
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func intPtr(v int) *int { return &v }

func seedPtr(v uint64) *uint64 { return &v }
