package cli

import (
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly parses args without executing the matched command.
func parseOnly(args ...string) (*GlobalFlags, *commands, string, error) {
	parser, globals, cmds := buildParser("test")
	var ran string
	parser.CommandHandler = func(cmd goflags.Commander, args []string) error {
		if parser.Active != nil {
			ran = parser.Active.Name
		}
		return nil
	}
	_, err := parser.ParseArgs(args)
	return globals, cmds, ran, err
}

func TestVersionFlag(t *testing.T) {
	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("0.1.0-test", []string{"--version"})
	})

	assert.NoError(t, err)
	assert.Contains(t, output, "puzzler 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})

	assert.Equal(t, "puzzler 1.2.3", strings.TrimSpace(output))
}

func TestAllSubcommandsExist(t *testing.T) {
	expected := []string{"status", "search", "solve", "show", "favorite", "analyze", "fetch", "prune", "purge"}
	parser, _, _ := buildParser("test")

	for _, name := range expected {
		cmd := parser.Find(name)
		assert.NotNil(t, cmd, "subcommand %q should exist", name)
	}
}

func TestSubcommandsRecognized(t *testing.T) {
	for _, args := range [][]string{
		{"status"},
		{"search", "--theme", "fork"},
		{"solve", "--id", "00008"},
		{"show", "--id", "00008"},
		{"favorite", "--list"},
		{"analyze", "--fen", "8/8/8/8/8/8/8/K6k w - - 0 1"},
		{"fetch"},
		{"prune", "--dry-run"},
		{"purge", "--all"},
	} {
		_, _, ran, err := parseOnly(args...)
		assert.NoError(t, err, args)
		assert.Equal(t, args[0], ran)
	}
}

func TestUnknownSubcommandFails(t *testing.T) {
	_, _, _, err := parseOnly("nonexistent")
	require.Error(t, err)
}

func TestSearchFlagsDefaults(t *testing.T) {
	_, c, _, err := parseOnly("search")
	require.NoError(t, err)

	assert.Nil(t, c.Search.MinRating)
	assert.Nil(t, c.Search.MaxRating)
	assert.Nil(t, c.Search.MinPopularity)
	assert.Nil(t, c.Search.Limit)
	assert.Equal(t, "any", c.Search.Side)
	assert.Equal(t, 10, c.Search.Show)
	assert.False(t, c.Search.Ordered)
	assert.Nil(t, c.Search.Seed)
}

func TestSearchFlagsZeroSeed(t *testing.T) {
	_, c, _, err := parseOnly("search", "--seed", "0")
	require.NoError(t, err)
	require.NotNil(t, c.Search.Seed)
	assert.Zero(t, *c.Search.Seed)
}

func TestSearchFlagsParsed(t *testing.T) {
	_, c, _, err := parseOnly("search",
		"--min-rating", "1500", "--max-rating", "1900",
		"--theme", "fork", "--theme", "pin", "--all-themes",
		"--opening", "Sicilian_Defense", "--side", "black",
		"--min-popularity", "-20", "--limit", "50", "--seed", "42", "--favorites")
	require.NoError(t, err)

	require.NotNil(t, c.Search.MinRating)
	assert.Equal(t, 1500, *c.Search.MinRating)
	assert.Equal(t, 1900, *c.Search.MaxRating)
	assert.Equal(t, []string{"fork", "pin"}, c.Search.Themes)
	assert.True(t, c.Search.AllThemes)
	assert.Equal(t, []string{"Sicilian_Defense"}, c.Search.Opening)
	assert.Equal(t, "black", c.Search.Side)
	assert.Equal(t, -20, *c.Search.MinPopularity)
	assert.Equal(t, 50, *c.Search.Limit)
	require.NotNil(t, c.Search.Seed)
	assert.Equal(t, uint64(42), *c.Search.Seed)
	assert.True(t, c.Search.Favorites)
}

func TestMetricsFileFlag(t *testing.T) {
	globals, _, _, err := parseOnly("--metrics-file", "/tmp/puzzler.prom", "search")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/puzzler.prom", globals.MetricsFile)
}

func TestGlobalFlags(t *testing.T) {
	globals, _, _, err := parseOnly("--json", "--verbose", "--config", "/tmp/test.yaml", "status")
	require.NoError(t, err)
	assert.True(t, globals.JSON)
	assert.True(t, globals.Verbose)
	assert.Equal(t, "/tmp/test.yaml", globals.Config)
}

func TestPruneDryRunFlag(t *testing.T) {
	_, c, _, err := parseOnly("prune", "--dry-run", "--older-than", "7d")
	require.NoError(t, err)
	assert.True(t, c.Prune.DryRun)
	assert.Equal(t, "7d", c.Prune.OlderThan)
}

func TestFlagValidationRunsBeforeOpeningStore(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"purge"}, "purge requires --all or --favorites"},
		{[]string{"show"}, "--id is required"},
		{[]string{"show", "--id", "x", "--format", "pdf"}, "unknown --format"},
		{[]string{"analyze"}, "analyze needs --fen or --id"},
		{[]string{"analyze", "--fen", "x", "--id", "y"}, "mutually exclusive"},
		{[]string{"prune", "--older-than", "soon"}, "invalid --older-than"},
	}
	for _, tt := range tests {
		err := RunWithArgs("test", tt.args)
		require.Error(t, err, tt.args)
		assert.Contains(t, err.Error(), tt.wantErr)
	}
}
