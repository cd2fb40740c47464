package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/puzzler/internal/chess"
	"github.com/runnerr0/puzzler/internal/corpus"
	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/session"
	"github.com/runnerr0/puzzler/internal/solver"
	"github.com/runnerr0/puzzler/internal/storage"
)

const solveHelp = `Commands:
  <move>     play a move in coordinate notation (e2e4, e7e8q)
  q r b n    pick the piece for a pending promotion
  hint       show which piece to move
  reveal     show the rest of the solution
  restart    start this puzzle again
  board      print the board
  fen        print the current position as FEN
  info       print themes, opening and links
  fav        toggle this puzzle as a favorite
  next       go to the next puzzle
  prev       go back to the previous puzzle
  new        search again, skipping puzzles already shown
  quit       leave`

// Execute implements the go-flags Commander interface for SolveCommand.
func (c *SolveCommand) Execute(args []string) error {
	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := commandContext()
	defer stop()
	return c.executeWith(ctx, rt)
}

// executeWith runs the solve loop against a provided app (for testing).
func (c *SolveCommand) executeWith(ctx context.Context, rt *app) error {
	q, err := c.query(rt.cfg)
	if err != nil {
		return err
	}
	src, err := c.source(rt)
	if err != nil {
		return err
	}
	defer rt.exportMetrics()

	var sess *session.SearchSession
	if c.ID != "" {
		found, err := lookupPuzzles(ctx, rt, []string{c.ID})
		if err != nil {
			return err
		}
		p, ok := found[c.ID]
		if !ok {
			return fmt.Errorf("puzzle not found: %s", c.ID)
		}
		q = filter.Query{IDs: []string{c.ID}}
		sess = session.New([]*puzzle.Puzzle{p})
		sess.Query = q
	} else {
		sess, err = runSearch(ctx, rt, src, q, c.globals != nil && c.globals.Verbose)
		if err != nil {
			return err
		}
	}

	strategy := c.strategy(rt.cfg)
	p, ok := session.Select(sess, strategy)
	if !ok {
		fmt.Printf("No puzzles match %s.\n", q)
		return nil
	}
	fmt.Printf("%s %s match %s.\n", formatNumber(int64(sess.Len())), plural(sess.Len(), "puzzle", "puzzles"), q)
	if sess.Shuffled {
		fmt.Printf("Order: shuffled (--seed %d). Type help for commands.\n", sess.Seed)
	} else {
		fmt.Println("Type help for commands.")
	}

	in := c.in
	if in == nil {
		in = os.Stdin
	}
	l := &solveLoop{
		rt:       rt,
		query:    q,
		src:      src,
		strategy: strategy,
		sess:     sess,
		opts:     solver.Options{AcceptAlternateMates: rt.cfg.Solver.AcceptAlternateMates},
		in:       bufio.NewScanner(in),
	}
	l.load(p)
	return l.run(ctx)
}

// solveLoop is the interactive state of one solve command.
type solveLoop struct {
	rt       *app
	query    filter.Query
	src      corpus.Source
	strategy session.Strategy
	sess     *session.SearchSession
	opts     solver.Options
	in       *bufio.Scanner

	attempt  *solver.Attempt
	recorded bool
}

func (l *solveLoop) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("> ")
		if !l.in.Scan() {
			fmt.Println()
			return l.in.Err()
		}
		line := strings.TrimSpace(l.in.Text())
		if line == "" {
			continue
		}
		if quit := l.handle(ctx, line); quit {
			return nil
		}
	}
}

// handle executes one input line and reports whether the user quit.
func (l *solveLoop) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	cmd := fields[0]

	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Println(solveHelp)
		return false
	case "next":
		if p, ok := session.Advance(l.sess, session.Next); ok {
			l.load(p)
		} else {
			fmt.Println("No more puzzles. Type new to search again without the ones you have seen.")
		}
		return false
	case "prev":
		if p, ok := session.Advance(l.sess, session.Previous); ok {
			l.load(p)
		} else {
			fmt.Println("Already at the first puzzle.")
		}
		return false
	case "new":
		l.searchAgain(ctx)
		return false
	}

	if l.attempt == nil {
		fmt.Println("No puzzle loaded. Type next, new or quit.")
		return false
	}

	switch cmd {
	case "hint":
		if sq, ok := l.attempt.Hint(); ok {
			fmt.Printf("Move the piece on %s.\n", sq)
		} else {
			fmt.Println("No hint available now.")
		}
	case "reveal", "solution":
		l.reveal(ctx)
	case "restart":
		if err := l.attempt.Restart(); err != nil {
			fmt.Printf("Cannot restart: %v\n", err)
			return false
		}
		l.recorded = false
		l.printIntro()
	case "board":
		l.printBoard()
	case "fen":
		fmt.Println(l.attempt.FEN())
	case "info":
		l.printInfo()
	case "fav":
		p := l.attempt.Puzzle()
		on, err := l.rt.ledger.Toggle(ctx, p)
		switch {
		case err != nil:
			fmt.Printf("Could not update favorites: %v\n", err)
		case on:
			fmt.Printf("Added %s to favorites.\n", p.ID)
		default:
			fmt.Printf("Removed %s from favorites.\n", p.ID)
		}
	case "promote":
		if len(fields) < 2 {
			fmt.Println("Usage: promote q|r|b|n")
			return false
		}
		l.promote(ctx, fields[1])
	default:
		if _, pending := l.attempt.Pending(); pending && len(cmd) == 1 {
			l.promote(ctx, cmd)
			return false
		}
		m, err := chess.ParseMove(cmd)
		if err != nil {
			fmt.Printf("Unknown command or move %q. Type help for commands.\n", cmd)
			return false
		}
		out, err := l.attempt.Play(m)
		l.report(ctx, m, out, err)
	}
	return false
}

func (l *solveLoop) promote(ctx context.Context, piece string) {
	if len(piece) != 1 {
		fmt.Println("Promote to q, r, b or n.")
		return
	}
	pending, _ := l.attempt.Pending()
	out, err := l.attempt.Promote(piece[0])
	if errors.Is(err, solver.ErrInvalidPromotion) {
		fmt.Println("Promote to q, r, b or n.")
		return
	}
	l.report(ctx, pending.WithPromo(piece[0]), out, err)
}

// report prints the result of a played move and stores finished attempts.
func (l *solveLoop) report(ctx context.Context, m chess.Move, out solver.Outcome, err error) {
	var wrong *solver.WrongMoveError
	switch {
	case err == nil && out.State == solver.Solved:
		if out.Alternate {
			fmt.Printf("%s is checkmate too. Puzzle solved!\n", m)
		} else {
			fmt.Println("Correct! Puzzle solved.")
		}
		l.record(ctx, storage.ResultSolved)
		fmt.Println("Type next for another puzzle.")
	case err == nil && out.HasReply:
		fmt.Printf("Correct. Opponent replies %s.\n", out.Reply)
		l.printBoard()
	case err == nil:
		l.printBoard()
	case errors.Is(err, solver.ErrPromotionRequired):
		fmt.Println("Promote to which piece? (q, r, b, n)")
	case errors.Is(err, solver.ErrIllegalMove):
		fmt.Printf("Illegal move %s.\n", m)
	case errors.As(err, &wrong):
		fmt.Printf("Wrong move %s. The solution was %s.\n", wrong.Played, wrong.Expected)
		l.record(ctx, storage.ResultFailed)
		fmt.Println("Type restart to try again, reveal for the full line, or next.")
	case errors.Is(err, solver.ErrAttemptOver):
		fmt.Println("This puzzle is finished. Type restart, next or quit.")
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func (l *solveLoop) reveal(ctx context.Context) {
	rest := l.attempt.Reveal()
	if len(rest) == 0 {
		fmt.Println("Nothing left to reveal.")
		return
	}
	parts := make([]string, len(rest))
	for i, m := range rest {
		parts[i] = m.String()
	}
	fmt.Printf("Solution: %s\n", strings.Join(parts, " "))
	l.record(ctx, storage.ResultRevealed)
}

// record stores the first result of the current attempt. Later results of
// the same attempt, such as a reveal after a wrong move, are not stored.
func (l *solveLoop) record(ctx context.Context, result string) {
	if l.recorded || !l.rt.cfg.Solver.RecordAttempts {
		return
	}
	played := l.attempt.Played()
	parts := make([]string, len(played))
	for i, m := range played {
		parts[i] = m.String()
	}
	rec := &storage.AttemptRecord{
		PuzzleID: l.attempt.Puzzle().ID,
		Result:   result,
		Moves:    strings.Join(parts, " "),
	}
	if err := l.rt.store.RecordAttempt(ctx, rec); err != nil {
		l.rt.log.Warn().Err(err).Str("puzzle_id", rec.PuzzleID).Msg("Could not record attempt")
		return
	}
	l.recorded = true
}

func (l *solveLoop) searchAgain(ctx context.Context) {
	q := l.query
	q.ExcludeSeen = true
	q.Seen = l.sess.Seen()
	for id := range l.query.Seen {
		q.Seen.Add(id)
	}
	if len(q.IDs) > 0 {
		fmt.Println("Nothing else to search for a single puzzle.")
		return
	}

	sess, err := runSearch(ctx, l.rt, l.src, q, false)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		return
	}
	p, ok := session.Select(sess, l.strategy)
	if !ok {
		fmt.Println("No unseen puzzles match.")
		return
	}
	fmt.Printf("%s unseen %s.\n", formatNumber(int64(sess.Len())), plural(sess.Len(), "puzzle", "puzzles"))
	l.query = q
	l.sess = sess
	l.load(p)
}

func (l *solveLoop) load(p *puzzle.Puzzle) {
	a, err := solver.NewAttempt(p, l.opts)
	if err != nil {
		l.attempt = nil
		fmt.Printf("Puzzle %s cannot be played: %v\n", p.ID, err)
		return
	}
	l.attempt = a
	l.recorded = false
	l.printIntro()
}

func (l *solveLoop) printIntro() {
	p := l.attempt.Puzzle()
	fav := ""
	if l.rt.ledger.IsFavorite(p.ID) {
		fav = "  (favorite)"
	}
	fmt.Printf("\nPuzzle %s  [%d/%d]  rating %d%s\n", p.ID, l.sess.Position()+1, l.sess.Len(), p.Rating, fav)
	if last, ok := l.attempt.LastMove(); ok {
		fmt.Printf("Opponent played %s. You play %s.\n", last, p.SolverColor())
	}
	l.printBoard()
}

func (l *solveLoop) printBoard() {
	d, err := chess.Diagram(l.attempt.FEN(), l.attempt.Puzzle().SolverColor())
	if err != nil {
		fmt.Println(l.attempt.FEN())
		return
	}
	fmt.Print(d)
}

func (l *solveLoop) printInfo() {
	p := l.attempt.Puzzle()
	fmt.Printf("Themes:  %s\n", strings.Join(p.Themes, " "))
	if len(p.OpeningTags) > 0 {
		fmt.Printf("Opening: %s\n", strings.Join(p.OpeningTags, " "))
	}
	fmt.Printf("Moves:   %d to find\n", p.SolverMoves())
	fmt.Printf("Puzzle:  %s\n", p.URL())
	if p.GameURL != "" {
		fmt.Printf("Game:    %s\n", p.GameURL)
	}
}
