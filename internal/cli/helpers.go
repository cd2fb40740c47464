package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/runnerr0/puzzler/internal/config"
	"github.com/runnerr0/puzzler/internal/corpus"
	"github.com/runnerr0/puzzler/internal/favorites"
	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/logging"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/storage"
)

// app bundles what a command needs once config is resolved.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	dbPath string
	store  *storage.SQLiteStore
	ledger *favorites.Ledger
	log    zerolog.Logger
}

// loadConfig resolves the config file: --config if given, otherwise the
// default path, created on first use.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// openApp loads config, opens the database, runs migrations and loads the
// favorites ledger.
func openApp(globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	if globals != nil && globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	if globals != nil && globals.MetricsFile != "" {
		cfg.Metrics.Textfile = globals.MetricsFile
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath
	if mode := cfg.Storage.SQLiteJournalMode; mode != "" {
		dsn += "?_journal_mode=" + strings.ToUpper(mode)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rt, err := newApp(cfg, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	rt.dbPath = dbPath
	return rt, nil
}

// newApp wires an app around an already-open database.
func newApp(cfg *config.Config, db *sql.DB, log zerolog.Logger) (*app, error) {
	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	ledger, err := favorites.Open(context.Background(), store, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	return &app{cfg: cfg, db: db, store: store, ledger: ledger, log: log}, nil
}

func (r *app) Close() {
	r.store.Close()
	r.db.Close()
}

// exportMetrics writes the scan counters to the configured textfile. A failed
// write is logged and does not fail the command.
func (r *app) exportMetrics() {
	path, err := r.cfg.MetricsPath()
	if err != nil {
		r.log.Warn().Err(err).Msg("Could not resolve metrics path")
		return
	}
	if path == "" {
		return
	}
	if err := corpus.WriteMetrics(path); err != nil {
		r.log.Warn().Err(err).Msg("Could not export metrics")
		return
	}
	r.log.Debug().Str("path", path).Msg("Metrics exported")
}

func (r *app) scanner() *corpus.Scanner {
	return corpus.NewScanner(
		corpus.WithBatchSize(r.cfg.Corpus.BatchSize),
		corpus.WithLogger(r.log),
	)
}

// corpusSource returns the configured corpus file, or override when set.
func (r *app) corpusSource(override string) (corpus.Source, error) {
	path := override
	if path == "" {
		var err error
		path, err = r.cfg.CorpusPath()
		if err != nil {
			return nil, err
		}
	}
	return corpus.FileSource{Path: path}, nil
}

// commandContext is cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// corpusError turns scanner errors into something a user can act on.
func corpusError(src corpus.Source, err error) error {
	if errors.Is(err, corpus.ErrCorpusMissing) {
		return fmt.Errorf("puzzle corpus not found at %s (run `puzzler fetch` to download it): %w", src.Name(), err)
	}
	return err
}

// lookupPuzzles finds puzzles by ID, trying rows stored with favorites before
// scanning the corpus. Missing IDs are absent from the result.
func lookupPuzzles(ctx context.Context, rt *app, ids []string) (map[string]*puzzle.Puzzle, error) {
	found := make(map[string]*puzzle.Puzzle, len(ids))
	var missing []string
	for _, id := range ids {
		entry, err := rt.store.GetFavorite(ctx, id)
		if err == nil && entry.Row != "" {
			if p, err := puzzle.DecodeLine(puzzle.SchemaV1, entry.Row); err == nil {
				found[id] = p
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return found, nil
	}

	src, err := rt.corpusSource("")
	if err != nil {
		return found, err
	}
	pred := filter.Compile(filter.Query{IDs: missing}, nil)
	sess, err := rt.scanner().Scan(ctx, src, pred, len(missing))
	if err != nil {
		return found, corpusError(src, err)
	}
	for _, p := range sess.Puzzles() {
		found[p.ID] = p
	}
	return found, nil
}

// puzzleJSON is the JSON shape of a puzzle in command output.
type puzzleJSON struct {
	ID              string   `json:"id"`
	FEN             string   `json:"fen"`
	Moves           string   `json:"moves"`
	Rating          int      `json:"rating"`
	RatingDeviation int      `json:"rating_deviation"`
	Popularity      int      `json:"popularity"`
	Plays           int      `json:"plays"`
	Themes          []string `json:"themes"`
	OpeningTags     []string `json:"opening_tags,omitempty"`
	GameURL         string   `json:"game_url,omitempty"`
	URL             string   `json:"url"`
	SolverColor     string   `json:"solver_color"`
	Favorite        bool     `json:"favorite"`
}

func toPuzzleJSON(p *puzzle.Puzzle, favorite bool) puzzleJSON {
	return puzzleJSON{
		ID:              p.ID,
		FEN:             p.FEN,
		Moves:           p.MovesString(),
		Rating:          p.Rating,
		RatingDeviation: p.RatingDeviation,
		Popularity:      p.Popularity,
		Plays:           p.Plays,
		Themes:          p.Themes,
		OpeningTags:     p.OpeningTags,
		GameURL:         p.GameURL,
		URL:             p.URL(),
		SolverColor:     p.SolverColor().String(),
		Favorite:        favorite,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
