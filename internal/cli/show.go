package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/puzzler/internal/chess"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if c.ID == "" && len(args) > 0 {
		c.ID = args[0]
	}
	if c.ID == "" {
		return fmt.Errorf("--id is required for show command")
	}
	switch c.Format {
	case "full", "fen", "moves", "url":
	default:
		return fmt.Errorf("unknown --format %q (use full, fen, moves or url)", c.Format)
	}

	rt, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := commandContext()
	defer stop()
	return c.executeWith(ctx, rt)
}

// executeWith prints the puzzle using a provided app (for testing).
func (c *ShowCommand) executeWith(ctx context.Context, rt *app) error {
	found, err := lookupPuzzles(ctx, rt, []string{c.ID})
	if err != nil {
		return err
	}
	p, ok := found[c.ID]
	if !ok {
		return fmt.Errorf("puzzle not found: %s", c.ID)
	}

	attempts, err := rt.store.ListAttempts(ctx, p.ID, 10)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	favorite := rt.ledger.IsFavorite(p.ID)

	if c.globals != nil && c.globals.JSON {
		return c.outputJSON(p, favorite, attempts)
	}

	switch c.Format {
	case "fen":
		fmt.Println(p.FEN)
	case "moves":
		fmt.Println(p.MovesString())
	case "url":
		fmt.Println(p.URL())
	default:
		c.outputFull(p, favorite, attempts)
	}
	return nil
}

func (c *ShowCommand) outputFull(p *puzzle.Puzzle, favorite bool, attempts []storage.AttemptRecord) {
	fmt.Println(p.ID)
	fmt.Printf("Rating:      %d (deviation %d)\n", p.Rating, p.RatingDeviation)
	fmt.Printf("Popularity:  %d (%s plays)\n", p.Popularity, formatNumber(int64(p.Plays)))
	fmt.Printf("Themes:      %s\n", strings.Join(p.Themes, " "))
	if len(p.OpeningTags) > 0 {
		fmt.Printf("Opening:     %s\n", strings.Join(p.OpeningTags, " "))
	}
	fmt.Printf("Solver:      %s, %d %s\n", p.SolverColor(), p.SolverMoves(), plural(p.SolverMoves(), "move", "moves"))
	fmt.Printf("FEN:         %s\n", p.FEN)
	fmt.Printf("Moves:       %s\n", p.MovesString())
	fmt.Printf("Puzzle:      %s\n", p.URL())
	if p.GameURL != "" {
		fmt.Printf("Game:        %s\n", p.GameURL)
	}
	if favorite {
		fmt.Println("Favorite:    yes")
	} else {
		fmt.Println("Favorite:    no")
	}

	if d, err := chess.Diagram(p.FEN, p.SolverColor()); err == nil {
		fmt.Println()
		fmt.Print(d)
	}

	if len(attempts) > 0 {
		fmt.Println()
		fmt.Println("Attempts:")
		for _, a := range attempts {
			fmt.Printf("  %s  %-8s %s\n", a.Timestamp.Local().Format("2006-01-02 15:04"), a.Result, a.Moves)
		}
	}
}

type jsonAttempt struct {
	Result    string `json:"result"`
	Moves     string `json:"moves"`
	Timestamp string `json:"timestamp"`
}

type jsonShowOutput struct {
	puzzleJSON
	Attempts []jsonAttempt `json:"attempts"`
}

func (c *ShowCommand) outputJSON(p *puzzle.Puzzle, favorite bool, attempts []storage.AttemptRecord) error {
	out := jsonShowOutput{
		puzzleJSON: toPuzzleJSON(p, favorite),
		Attempts:   make([]jsonAttempt, len(attempts)),
	}
	for i, a := range attempts {
		out.Attempts[i] = jsonAttempt{
			Result:    a.Result,
			Moves:     a.Moves,
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return printJSON(out)
}
