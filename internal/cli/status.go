package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/runnerr0/puzzler/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string           `json:"version"`
	DatabasePath      string           `json:"database_path"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
	CorpusPath        string           `json:"corpus_path"`
	CorpusSizeBytes   int64            `json:"corpus_size_bytes"`
	CorpusPresent     bool             `json:"corpus_present"`
	Favorites         int64            `json:"favorites"`
	Unfavorited       int64            `json:"unfavorited"`
	Attempts          int64            `json:"attempts"`
	Solved            int64            `json:"solved"`
	Failed            int64            `json:"failed"`
	Revealed          int64            `json:"revealed"`
	LastAttempt       string           `json:"last_attempt,omitempty"`
	RetentionDays     int              `json:"retention_days"`
	TopThemes         []themeCountJSON `json:"top_themes"`
	EnginePath        string           `json:"engine_path"`
	EngineFound       bool             `json:"engine_found"`
}

type themeCountJSON struct {
	Theme string `json:"theme"`
	Count int64  `json:"count"`
}

// corpusInfo describes the corpus file on disk.
type corpusInfo struct {
	path    string
	size    int64
	present bool
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	return c.executeWith(context.Background(), rt)
}

// executeWith runs status against a provided app (for testing).
func (c *StatusCommand) executeWith(ctx context.Context, rt *app) error {
	stats, err := rt.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	stats.DatabaseSizeBytes = getDatabaseSize(rt.db, rt.dbPath)

	var corpus corpusInfo
	corpus.path, err = rt.cfg.CorpusPath()
	if err != nil {
		return err
	}
	if info, err := os.Stat(corpus.path); err == nil && !info.IsDir() {
		corpus.present = true
		corpus.size = info.Size()
	}

	engineFound := checkEngine(rt.cfg.Engine.Path)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, rt, corpus, engineFound)
	}
	return c.printStatusHuman(stats, rt, corpus, engineFound)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, rt *app, corpus corpusInfo, engineFound bool) error {
	fmt.Println("Puzzler Status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", rt.dbPath, formatBytes(stats.DatabaseSizeBytes))
	if corpus.present {
		fmt.Printf("Corpus:        %s (%s)\n", corpus.path, formatBytes(corpus.size))
	} else {
		fmt.Printf("Corpus:        %s (missing, run `puzzler fetch`)\n", corpus.path)
	}
	fmt.Printf("Favorites:     %s\n", formatNumber(stats.Favorites))
	fmt.Printf("Attempts:      %s\n", formatNumber(stats.Attempts))

	if stats.Attempts > 0 {
		pct := float64(stats.Solved) / float64(stats.Attempts) * 100
		fmt.Printf("  Solved:      %s (%.1f%%)\n", formatNumber(stats.Solved), pct)
		fmt.Printf("  Failed:      %s\n", formatNumber(stats.Failed))
		fmt.Printf("  Revealed:    %s\n", formatNumber(stats.Revealed))
		fmt.Printf("Last attempt:  %s\n", stats.LastAttempt.Local().Format("2006-01-02 15:04"))
	}

	fmt.Printf("Retention:     %d days (%s unfavorited)\n", rt.cfg.Retention.UnfavoritedDays, formatNumber(stats.Unfavorited))

	// Top themes
	if len(stats.TopThemes) > 0 {
		fmt.Println()
		fmt.Println("Top Themes:")
		for _, t := range stats.TopThemes {
			fmt.Printf("  %-20s %s\n", t.Theme, formatNumber(t.Count))
		}
	}

	fmt.Println()
	if engineFound {
		fmt.Printf("Engine:        %s\n", rt.cfg.Engine.Path)
	} else {
		fmt.Printf("Engine:        %s (not found)\n", rt.cfg.Engine.Path)
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, rt *app, corpus corpusInfo, engineFound bool) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      rt.dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		CorpusPath:        corpus.path,
		CorpusSizeBytes:   corpus.size,
		CorpusPresent:     corpus.present,
		Favorites:         stats.Favorites,
		Unfavorited:       stats.Unfavorited,
		Attempts:          stats.Attempts,
		Solved:            stats.Solved,
		Failed:            stats.Failed,
		Revealed:          stats.Revealed,
		RetentionDays:     rt.cfg.Retention.UnfavoritedDays,
		TopThemes:         make([]themeCountJSON, len(stats.TopThemes)),
		EnginePath:        rt.cfg.Engine.Path,
		EngineFound:       engineFound,
	}

	if stats.Attempts > 0 {
		out.LastAttempt = stats.LastAttempt.UTC().Format(time.RFC3339)
	}

	for i, t := range stats.TopThemes {
		out.TopThemes[i] = themeCountJSON{Theme: t.Theme, Count: t.Count}
	}

	return printJSON(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	// Try file stat first
	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			return info.Size()
		}
	}

	// Fallback: query SQLite for in-memory or unavailable file
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkEngine reports whether the engine binary exists, either at the given
// path or on $PATH.
func checkEngine(path string) bool {
	if path == "" {
		return false
	}
	_, err := exec.LookPath(path)
	return err == nil
}
