package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/puzzler/internal/analysis"
)

type fakeAnalyzer struct {
	cfg   analysis.Config
	fen   string
	lines []analysis.Line
	err   error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, fen string) (<-chan analysis.Line, error) {
	f.fen = fen
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan analysis.Line, len(f.lines))
	for _, l := range f.lines {
		ch <- l
	}
	close(ch)
	return ch, nil
}

func withAnalyzer(c *AnalyzeCommand, f *fakeAnalyzer) {
	c.newAnalyzer = func(cfg analysis.Config) analysis.Analyzer {
		f.cfg = cfg
		return f
	}
}

func TestAnalyze_FEN(t *testing.T) {
	rt := newTestApp(t)
	fen := "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	fake := &fakeAnalyzer{lines: []analysis.Line{
		{Depth: 1, Score: 35, PV: []string{"g1f1"}},
		{Depth: 2, Score: 1, Mate: true, PV: []string{"a1a8"}},
	}}

	c := &AnalyzeCommand{FEN: fen, Depth: 12, globals: &GlobalFlags{}}
	withAnalyzer(c, fake)
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	assert.Equal(t, fen, fake.fen)
	assert.Equal(t, 12, fake.cfg.Depth)
	assert.Equal(t, rt.cfg.Engine.Path, fake.cfg.Path)
	assert.Equal(t, 256, fake.cfg.HashMB)
	assert.Contains(t, out, "Analyzing "+fen)
	assert.Contains(t, out, "depth  1   +0.35  g1f1")
	assert.Contains(t, out, "depth  2      #1  a1a8")
}

func TestAnalyze_PuzzleIDUsesSolverPosition(t *testing.T) {
	rt := newTestApp(t, defaultRows...)
	fake := &fakeAnalyzer{lines: []analysis.Line{{Depth: 1, Score: 1, Mate: true, PV: []string{"a1a8"}}}}

	c := &AnalyzeCommand{ID: "000aY", globals: &GlobalFlags{}}
	withAnalyzer(c, fake)
	captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	// g8h8 has been played; white is to move.
	assert.Contains(t, fake.fen, "7k/5ppp/8/8/8/8/5PPP/R5K1 w")
	assert.Equal(t, 40, fake.cfg.Depth)
}

func TestAnalyze_JSON(t *testing.T) {
	rt := newTestApp(t)
	fake := &fakeAnalyzer{lines: []analysis.Line{{Depth: 5, Score: -120, PV: []string{"e7e5", "g1f3"}}}}

	c := &AnalyzeCommand{FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", globals: &GlobalFlags{JSON: true}}
	withAnalyzer(c, fake)
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	var res struct {
		FEN   string     `json:"fen"`
		Lines []jsonLine `json:"lines"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 5, res.Lines[0].Depth)
	assert.Equal(t, -120, res.Lines[0].Score)
	assert.Equal(t, []string{"e7e5", "g1f3"}, res.Lines[0].PV)
}

func TestAnalyze_NoLines(t *testing.T) {
	rt := newTestApp(t)
	c := &AnalyzeCommand{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", globals: &GlobalFlags{}}
	withAnalyzer(c, &fakeAnalyzer{})

	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})
	assert.Contains(t, out, "Engine returned no evaluation")
}

func TestAnalyze_EngineError(t *testing.T) {
	rt := newTestApp(t)
	c := &AnalyzeCommand{FEN: "8/8/8/8/8/8/8/K6k w - - 0 1", globals: &GlobalFlags{}}
	withAnalyzer(c, &fakeAnalyzer{err: errors.New("engine not found")})

	err := c.executeWith(context.Background(), rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine not found")
}

func TestAnalyze_UnknownPuzzle(t *testing.T) {
	rt := newTestApp(t, defaultRows...)
	c := &AnalyzeCommand{ID: "nope", globals: &GlobalFlags{}}
	withAnalyzer(c, &fakeAnalyzer{})

	err := c.executeWith(context.Background(), rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "puzzle not found: nope")
}
