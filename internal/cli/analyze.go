package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/puzzler/internal/analysis"
	"github.com/runnerr0/puzzler/internal/chess"
)

// Execute implements the go-flags Commander interface for AnalyzeCommand.
func (c *AnalyzeCommand) Execute(args []string) error {
	if c.FEN == "" && c.ID == "" {
		return fmt.Errorf("analyze needs --fen or --id")
	}
	if c.FEN != "" && c.ID != "" {
		return fmt.Errorf("--fen and --id are mutually exclusive")
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

type jsonLine struct {
	Depth int      `json:"depth"`
	Score int      `json:"score"`
	Mate  bool     `json:"mate"`
	PV    []string `json:"pv"`
}

// executeWith streams engine lines using a provided app (for testing).
func (c *AnalyzeCommand) executeWith(ctx context.Context, rt *app) error {
	fen := c.FEN
	if c.ID != "" {
		found, err := lookupPuzzles(ctx, rt, []string{c.ID})
		if err != nil {
			return err
		}
		p, ok := found[c.ID]
		if !ok {
			return fmt.Errorf("puzzle not found: %s", c.ID)
		}
		// Analyze the position the solver faces.
		pos, err := chess.FromFEN(p.FEN)
		if err != nil {
			return err
		}
		if err := pos.Apply(p.Moves[0]); err != nil {
			return fmt.Errorf("puzzle %s: %w", p.ID, err)
		}
		fen = pos.FEN()
	}

	ecfg := analysis.Config{
		Path:    rt.cfg.Engine.Path,
		Depth:   rt.cfg.Engine.Depth,
		HashMB:  rt.cfg.Engine.HashMB,
		Threads: rt.cfg.Engine.Threads,
		Lines:   rt.cfg.Engine.Lines,
		Logger:  rt.log,
	}
	if c.Depth > 0 {
		ecfg.Depth = c.Depth
	}

	newAnalyzer := c.newAnalyzer
	if newAnalyzer == nil {
		newAnalyzer = func(cfg analysis.Config) analysis.Analyzer {
			return analysis.NewUCIAnalyzer(cfg)
		}
	}

	lines, err := newAnalyzer(ecfg).Analyze(ctx, fen)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	jsonOut := c.globals != nil && c.globals.JSON
	if !jsonOut {
		fmt.Printf("Analyzing %s\n", fen)
	}
	var collected []jsonLine
	var last *analysis.Line
	for l := range lines {
		l := l
		last = &l
		if jsonOut {
			collected = append(collected, jsonLine{Depth: l.Depth, Score: l.Score, Mate: l.Mate, PV: l.PV})
			continue
		}
		fmt.Println(l.String())
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"fen":   fen,
			"lines": collected,
		})
	}
	if last == nil {
		fmt.Println("Engine returned no evaluation")
	}
	return nil
}
