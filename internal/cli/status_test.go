package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/puzzler/internal/storage"
)

func TestStatus_Empty(t *testing.T) {
	rt := newTestApp(t)

	c := &StatusCommand{globals: &GlobalFlags{}, version: "0.1.0-test"}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(context.Background(), rt))
	})

	assert.Contains(t, out, "Puzzler Status")
	assert.Contains(t, out, "Version:       0.1.0-test")
	assert.Contains(t, out, "(missing, run `puzzler fetch`)")
	assert.Contains(t, out, "Favorites:     0")
	assert.Contains(t, out, "Attempts:      0")
	assert.Contains(t, out, "Retention:     30 days (0 unfavorited)")
	assert.Contains(t, out, "(not found)")
	assert.NotContains(t, out, "Solved:")
}

func TestStatus_WithData(t *testing.T) {
	rt := newTestApp(t, defaultRows...)
	ctx := context.Background()

	require.NoError(t, rt.ledger.SetPuzzle(ctx, decodeRows(t, rowBackRank)[0], true))
	require.NoError(t, rt.ledger.SetPuzzle(ctx, decodeRows(t, rowHard)[0], true))
	require.NoError(t, rt.ledger.SetFavorite(ctx, "00008", false))
	for _, r := range []string{storage.ResultSolved, storage.ResultSolved, storage.ResultFailed, storage.ResultRevealed} {
		require.NoError(t, rt.store.RecordAttempt(ctx, &storage.AttemptRecord{PuzzleID: "000aY", Result: r}))
	}

	c := &StatusCommand{globals: &GlobalFlags{}, version: "test"}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(ctx, rt))
	})

	assert.NotContains(t, out, "missing")
	assert.Contains(t, out, "Favorites:     2")
	assert.Contains(t, out, "Attempts:      4")
	assert.Contains(t, out, "Solved:      2 (50.0%)")
	assert.Contains(t, out, "Failed:      1")
	assert.Contains(t, out, "Revealed:    1")
	assert.Contains(t, out, "(1 unfavorited)")
	assert.Contains(t, out, "Top Themes:")
	assert.Contains(t, out, "mate")
}

func TestStatus_JSON(t *testing.T) {
	rt := newTestApp(t, defaultRows...)
	ctx := context.Background()
	require.NoError(t, rt.ledger.SetPuzzle(ctx, decodeRows(t, rowBackRank)[0], true))
	require.NoError(t, rt.store.RecordAttempt(ctx, &storage.AttemptRecord{PuzzleID: "000aY", Result: storage.ResultSolved}))

	c := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "1.0.0"}
	out := captureOutput(t, func() {
		require.NoError(t, c.executeWith(ctx, rt))
	})

	var res statusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "1.0.0", res.Version)
	assert.True(t, res.CorpusPresent)
	assert.Positive(t, res.CorpusSizeBytes)
	assert.Positive(t, res.DatabaseSizeBytes)
	assert.Equal(t, int64(1), res.Favorites)
	assert.Equal(t, int64(1), res.Attempts)
	assert.Equal(t, int64(1), res.Solved)
	assert.NotEmpty(t, res.LastAttempt)
	assert.Equal(t, 30, res.RetentionDays)
	assert.False(t, res.EngineFound)
	assert.NotEmpty(t, res.TopThemes)
}

func TestCheckEngine(t *testing.T) {
	assert.False(t, checkEngine(""))
	assert.False(t, checkEngine("/definitely/not/an/engine"))
}
