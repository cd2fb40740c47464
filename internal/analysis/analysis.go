// Package analysis hands positions to an external chess engine and streams
// back its evaluation lines.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/runnerr0/puzzler/internal/chess"
)

// ErrNoResult is returned by a searcher that produced no evaluation.
var ErrNoResult = errors.New("no results from engine")

// Line is one evaluation, from white's point of view.
type Line struct {
	Depth int
	Score int  // centipawns, or moves to mate when Mate is set
	Mate  bool // Score counts moves to mate
	PV    []string
}

// String renders the score the way engines usually display it.
func (l Line) String() string {
	var score string
	if l.Mate {
		score = fmt.Sprintf("#%d", l.Score)
	} else {
		score = fmt.Sprintf("%+.2f", float64(l.Score)/100)
	}
	out := fmt.Sprintf("depth %2d  %6s", l.Depth, score)
	if len(l.PV) > 0 {
		out += "  " + strings.Join(l.PV, " ")
	}
	return out
}

// Analyzer evaluates positions. Lines arrive with increasing depth; the
// channel is closed when the depth limit is reached, the engine fails, or
// ctx is cancelled.
type Analyzer interface {
	Analyze(ctx context.Context, fen string) (<-chan Line, error)
}

// searcher runs one fixed-depth search. It exists so tests can replace the
// engine process.
type searcher interface {
	Search(fen string, depth int) (Line, error)
	Close()
}

// Config for the UCI analyzer.
type Config struct {
	Path    string
	Depth   int
	HashMB  int
	Threads int
	Lines   int // MultiPV
	Logger  zerolog.Logger
}

// UCIAnalyzer drives an external UCI engine process, one per Analyze call.
type UCIAnalyzer struct {
	cfg   Config
	start func(Config) (searcher, error)
}

// NewUCIAnalyzer returns an analyzer for the engine at cfg.Path.
func NewUCIAnalyzer(cfg Config) *UCIAnalyzer {
	if cfg.Depth <= 0 {
		cfg.Depth = 20
	}
	if cfg.Lines <= 0 {
		cfg.Lines = 1
	}
	return &UCIAnalyzer{cfg: cfg, start: startEngine}
}

// Analyze starts the engine and deepens the search one ply at a time.
func (a *UCIAnalyzer) Analyze(ctx context.Context, fen string) (<-chan Line, error) {
	pos, err := chess.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	blackToMove := pos.SideToMove() == chess.Black

	eng, err := a.start(a.cfg)
	if err != nil {
		return nil, err
	}

	log := a.cfg.Logger.With().Str("fen", fen).Logger()
	lines := make(chan Line)
	go func() {
		defer close(lines)
		defer eng.Close()

		for depth := 1; depth <= a.cfg.Depth; depth++ {
			if ctx.Err() != nil {
				return
			}
			line, err := eng.Search(fen, depth)
			if err != nil {
				log.Warn().Err(err).Int("depth", depth).Msg("Engine search failed")
				return
			}
			if blackToMove {
				line.Score = -line.Score
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
			// Nothing deeper to find once mate is announced at this depth.
			if line.Mate && abs(line.Score) <= (depth+1)/2 {
				log.Debug().Int("depth", depth).Int("mate", line.Score).Msg("Mate found")
				return
			}
		}
	}()
	return lines, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type engineSearcher struct {
	engine *uci.Engine
}

func startEngine(cfg Config) (searcher, error) {
	engine, err := uci.NewEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: cfg.Lines,
		Ponder:  false,
		OwnBook: false,
	}
	if err := engine.SetOptions(opts); err != nil {
		engine.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}
	cfg.Logger.Debug().Str("engine", cfg.Path).Int("hash_mb", cfg.HashMB).Int("threads", cfg.Threads).Msg("Engine started")
	return &engineSearcher{engine: engine}, nil
}

func (e *engineSearcher) Search(fen string, depth int) (Line, error) {
	if err := e.engine.SetFEN(fen); err != nil {
		return Line{}, fmt.Errorf("set FEN: %w", err)
	}
	results, err := e.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return Line{}, fmt.Errorf("engine eval: %w", err)
	}
	if len(results.Results) == 0 {
		return Line{}, ErrNoResult
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}
	return Line{
		Depth: best.Depth,
		Score: best.Score,
		Mate:  best.Mate,
		PV:    append([]string(nil), best.BestMoves...),
	}, nil
}

func (e *engineSearcher) Close() {
	e.engine.Close()
}
