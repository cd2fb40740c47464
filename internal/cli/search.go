package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/puzzler/internal/config"
	"github.com/runnerr0/puzzler/internal/corpus"
	"github.com/runnerr0/puzzler/internal/favorites"
	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/session"
)

// query builds the filter query from flags, falling back to config values.
func (f *QueryFlags) query(cfg *config.Config) (filter.Query, error) {
	var q filter.Query

	if !f.AnyRating {
		lo, hi := cfg.Search.MinRating, cfg.Search.MaxRating
		if f.MinRating != nil {
			lo = *f.MinRating
		}
		if f.MaxRating != nil {
			hi = *f.MaxRating
		}
		q = q.WithRating(lo, hi)
	}

	mode := cfg.Search.ThemeMatch
	if f.AllThemes {
		mode = "all"
	}
	match, err := filter.ParseThemeMatch(mode)
	if err != nil {
		return q, err
	}
	q.ThemeMatch = match
	q.Themes = f.Themes
	q.OpeningPrefix = f.Opening

	side, err := filter.ParseSide(f.Side)
	if err != nil {
		return q, err
	}
	q.Side = side

	pop := cfg.Search.MinPopularity
	if f.MinPopularity != nil {
		pop = *f.MinPopularity
	}
	q = q.WithMinPopularity(pop)

	q.Limit = cfg.Search.Limit
	if f.Limit != nil {
		q.Limit = *f.Limit
	}
	if q.Limit < 0 {
		return q, fmt.Errorf("invalid --limit %d", q.Limit)
	}
	q.FavoritesOnly = f.Favorites
	return q, nil
}

// strategy picks the session order. --seed always shuffles, including
// --seed 0. A shuffle without --seed draws a fresh seed, which is printed so
// the order can be repeated.
func (f *QueryFlags) strategy(cfg *config.Config) session.Strategy {
	switch {
	case f.Ordered:
		return session.FirstMatch
	case f.Seed != nil:
		return session.RandomWithSeed(*f.Seed)
	case !cfg.Search.Random:
		return session.FirstMatch
	}
	return session.RandomWithSeed(session.NewSeed())
}

// source picks what to scan. Favorites-only searches read the rows stored
// with each favorite unless a corpus file is named explicitly.
func (f *QueryFlags) source(rt *app) (corpus.Source, error) {
	if f.Favorites && f.Corpus == "" {
		return favorites.Source{Store: rt.store}, nil
	}
	return rt.corpusSource(f.Corpus)
}

// runSearch scans src in the background while progress is reported on
// stderr. A scan stopped by a read error still returns its partial session.
func runSearch(ctx context.Context, rt *app, src corpus.Source, q filter.Query, showProgress bool) (*session.SearchSession, error) {
	pred := filter.Compile(q, rt.ledger.Snapshot())
	job := rt.scanner().Start(ctx, src, pred, q.Limit)

	var g errgroup.Group
	g.Go(func() error {
		reported := false
		for p := range job.Progress() {
			if showProgress {
				fmt.Fprintf(os.Stderr, "\rScanned %s rows, %s matches", formatNumber(int64(p.RowsScanned)), formatNumber(int64(p.Matches)))
				reported = true
			}
		}
		if reported {
			fmt.Fprintln(os.Stderr)
		}
		return nil
	})

	var res corpus.Result
	g.Go(func() error {
		res = job.Wait()
		if res.Session == nil {
			return corpusError(src, res.Err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess := res.Session
	sess.Query = q
	if res.Err != nil {
		rt.log.Warn().Err(res.Err).Msg("Corpus read stopped early; results are partial")
	}
	rt.log.Debug().
		Str("session", sess.ID.String()).
		Int("rows", sess.RowsScanned).
		Int("matches", sess.Len()).
		Bool("partial", sess.Partial).
		Msg("Search finished")
	return sess, nil
}

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := commandContext()
	defer stop()
	return c.executeWith(ctx, rt)
}

// executeWith runs the search against a provided app (for testing).
func (c *SearchCommand) executeWith(ctx context.Context, rt *app) error {
	q, err := c.query(rt.cfg)
	if err != nil {
		return err
	}
	src, err := c.source(rt)
	if err != nil {
		return err
	}
	defer rt.exportMetrics()

	verbose := c.globals != nil && c.globals.Verbose
	sess, err := runSearch(ctx, rt, src, q, verbose)
	if err != nil {
		return err
	}
	session.Select(sess, c.strategy(rt.cfg))

	shown := sess.Puzzles()
	if c.Show > 0 && len(shown) > c.Show {
		shown = shown[:c.Show]
	}

	favs := rt.ledger.Snapshot()
	if c.globals != nil && c.globals.JSON {
		return c.printJSON(sess, shown, favs)
	}
	c.printHuman(sess, shown, favs)
	return nil
}

func (c *SearchCommand) printHuman(sess *session.SearchSession, shown []*puzzle.Puzzle, favs favorites.Snapshot) {
	skipped := ""
	if sess.DecodeFailures > 0 {
		skipped = fmt.Sprintf(", %s skipped", formatNumber(int64(sess.DecodeFailures)))
	}
	scanned := fmt.Sprintf("scanned %s rows%s", formatNumber(int64(sess.RowsScanned)), skipped)

	if sess.Empty() {
		fmt.Printf("No puzzles match %s (%s)\n", sess.Query, scanned)
		if sess.Partial {
			fmt.Println("Search was interrupted; the corpus was not fully scanned.")
		}
		return
	}

	fmt.Printf("Found %s %s matching %s (%s)\n",
		formatNumber(int64(sess.Len())), plural(sess.Len(), "puzzle", "puzzles"), sess.Query, scanned)
	if sess.Partial {
		fmt.Println("Search was interrupted; results are partial.")
	}
	if sess.Shuffled {
		fmt.Printf("Order: shuffled (--seed %d)\n", sess.Seed)
	} else {
		fmt.Println("Order: corpus")
	}
	fmt.Println()

	for i, p := range shown {
		star := ""
		if favs.IsFavorite(p.ID) {
			star = "  *"
		}
		fmt.Printf("%3d. %-6s %4d  %-5s  %s%s\n", i+1, p.ID, p.Rating, p.SolverColor(), strings.Join(p.Themes, " "), star)
		fmt.Printf("     %s\n", p.URL())
	}
	if rest := sess.Len() - len(shown); rest > 0 {
		fmt.Printf("\n... and %s more\n", formatNumber(int64(rest)))
	}
}

type jsonSearchOutput struct {
	SessionID      string       `json:"session_id"`
	Query          string       `json:"query"`
	Count          int          `json:"count"`
	RowsScanned    int          `json:"rows_scanned"`
	DecodeFailures int          `json:"decode_failures"`
	Partial        bool         `json:"partial"`
	Shuffled       bool         `json:"shuffled"`
	Seed           *uint64      `json:"seed,omitempty"`
	Results        []puzzleJSON `json:"results"`
}

func (c *SearchCommand) printJSON(sess *session.SearchSession, shown []*puzzle.Puzzle, favs favorites.Snapshot) error {
	out := jsonSearchOutput{
		SessionID:      sess.ID.String(),
		Query:          sess.Query.String(),
		Count:          sess.Len(),
		RowsScanned:    sess.RowsScanned,
		DecodeFailures: sess.DecodeFailures,
		Partial:        sess.Partial,
		Shuffled:       sess.Shuffled,
		Results:        make([]puzzleJSON, len(shown)),
	}
	if sess.Shuffled {
		seed := sess.Seed
		out.Seed = &seed
	}
	for i, p := range shown {
		out.Results[i] = toPuzzleJSON(p, favs.IsFavorite(p.ID))
	}
	return printJSON(out)
}
