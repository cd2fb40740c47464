package cli

import (
	"io"
	"net/http"

	"github.com/runnerr0/puzzler/internal/analysis"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`

	MetricsFile string `long:"metrics-file" description:"Write scan metrics in Prometheus text format to this file after search and solve"`
}

// QueryFlags are the puzzle filters shared by search and solve. Unset
// pointer flags fall back to the config file.
type QueryFlags struct {
	MinRating     *int     `long:"min-rating" description:"Lowest puzzle rating (inclusive)"`
	MaxRating     *int     `long:"max-rating" description:"Highest puzzle rating (inclusive)"`
	AnyRating     bool     `long:"any-rating" description:"Do not filter by rating"`
	Themes        []string `long:"theme" description:"Theme tag to match (repeatable)"`
	AllThemes     bool     `long:"all-themes" description:"Require every --theme instead of any one"`
	Opening       []string `long:"opening" description:"Opening tag prefix, family first (repeatable)"`
	Side          string   `long:"side" description:"Color the solver plays: any | white | black" default:"any"`
	MinPopularity *int     `long:"min-popularity" description:"Lowest popularity score"`
	Limit         *int     `long:"limit" description:"Stop scanning after this many matches (0 = no limit)"`
	Favorites     bool     `long:"favorites" description:"Only favorited puzzles"`
	Corpus        string   `long:"corpus" description:"Corpus file to scan instead of the configured one"`
	Seed          *uint64  `long:"seed" description:"Shuffle seed; the same seed repeats the same order"`
	Ordered       bool     `long:"ordered" description:"Keep corpus order instead of shuffling"`
}

// StatusCommand: show favorites, attempt history, and setup health.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SearchCommand: scan the corpus and list matching puzzles.
type SearchCommand struct {
	QueryFlags
	Show int `long:"show" description:"Number of matches to print" default:"10"`

	globals *GlobalFlags
	version string
}

// SolveCommand: play through matching puzzles interactively.
type SolveCommand struct {
	QueryFlags
	ID string `long:"id" description:"Solve this puzzle only"`

	globals *GlobalFlags
	version string
	in      io.Reader // injectable for testing; nil means stdin
}

// ShowCommand: print one puzzle and its attempt history.
type ShowCommand struct {
	ID     string `long:"id" description:"Puzzle ID (required)"`
	Format string `long:"format" description:"Output format: full | fen | moves | url" default:"full"`

	globals *GlobalFlags
	version string
}

// FavoriteCommand: add, remove, or list favorites.
type FavoriteCommand struct {
	Add    []string `long:"add" description:"Puzzle ID to favorite (repeatable)"`
	Remove []string `long:"remove" description:"Puzzle ID to unfavorite (repeatable)"`
	List   bool     `long:"list" description:"List favorites"`

	globals *GlobalFlags
	version string
}

// AnalyzeCommand: evaluate a position with a UCI engine.
type AnalyzeCommand struct {
	FEN   string `long:"fen" description:"Position to analyze"`
	ID    string `long:"id" description:"Analyze the starting position of this puzzle"`
	Depth int    `long:"depth" description:"Override engine depth"`

	globals     *GlobalFlags
	version     string
	newAnalyzer func(analysis.Config) analysis.Analyzer // injectable for testing
}

// FetchCommand: download the lichess puzzle corpus.
type FetchCommand struct {
	URL    string `long:"url" description:"Override the download URL"`
	Output string `long:"output" description:"Override the corpus path"`

	globals *GlobalFlags
	version string
	client  *http.Client // injectable for testing
}

// PruneCommand: delete unfavorited entries past the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand: delete stored data with safety confirmation.
type PurgeCommand struct {
	All       bool `long:"all" description:"Delete favorites and attempt history"`
	Favorites bool `long:"favorites" description:"Delete favorites only"`
	Force     bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // injectable for testing; nil means stdin
}
