// Package solver checks a player's moves against a puzzle's recorded solution.
package solver

import (
	"errors"
	"fmt"

	"github.com/runnerr0/puzzler/internal/chess"
	"github.com/runnerr0/puzzler/internal/puzzle"
)

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrWrongMove          = errors.New("wrong move")
	ErrPromotionRequired  = errors.New("promotion piece required")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrNoPendingPromotion = errors.New("no promotion pending")
	ErrAttemptOver        = errors.New("attempt is over")
	ErrBrokenSolution     = errors.New("recorded solution is not playable")
)

// WrongMoveError reports a legal move that is not the recorded one.
type WrongMoveError struct {
	Played   chess.Move
	Expected chess.Move
}

func (e *WrongMoveError) Error() string {
	return fmt.Sprintf("wrong move %s (expected %s)", e.Played, e.Expected)
}

func (e *WrongMoveError) Is(target error) bool {
	return target == ErrWrongMove
}

// State of an attempt.
type State int

const (
	AwaitingOpponentReveal State = iota
	AwaitingSolverMove
	AwaitingPromotionChoice
	Solved
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingOpponentReveal:
		return "awaiting opponent reveal"
	case AwaitingSolverMove:
		return "awaiting solver move"
	case AwaitingPromotionChoice:
		return "awaiting promotion choice"
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Done reports whether the attempt has finished, successfully or not.
func (s State) Done() bool {
	return s == Solved || s == Failed
}

// Options tune how strictly moves are judged.
type Options struct {
	// AcceptAlternateMates counts any legal mating move as correct, even if it
	// is not the recorded one.
	AcceptAlternateMates bool
}

// Outcome describes the effect of a successful Play or Promote.
type Outcome struct {
	State State
	// Reply is the opponent move played automatically after a correct move.
	Reply    chess.Move
	HasReply bool
	// Alternate is set when an unrecorded mating move was accepted.
	Alternate bool
}

// Attempt is the live solving state for one puzzle. It is not safe for
// concurrent use.
type Attempt struct {
	puzzle *puzzle.Puzzle
	opts   Options

	start *chess.Position
	board *chess.Position

	index   int
	state   State
	pending chess.Move
	history []chess.Move
}

// NewAttempt loads p and plays the opponent's revealing move.
func NewAttempt(p *puzzle.Puzzle, opts Options) (*Attempt, error) {
	if len(p.Moves) == 0 {
		return nil, fmt.Errorf("%w: puzzle %s has no moves", ErrBrokenSolution, p.ID)
	}
	start, err := chess.FromFEN(p.FEN)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", p.ID, err)
	}
	a := &Attempt{puzzle: p, opts: opts, start: start}
	if err := a.reset(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Attempt) reset() error {
	a.board = a.start.Clone()
	a.index = 0
	a.history = nil
	a.pending = chess.Move{}
	a.state = AwaitingOpponentReveal
	return a.reveal()
}

// reveal plays the opponent move at the current index.
func (a *Attempt) reveal() error {
	m := a.puzzle.Moves[a.index]
	if err := a.board.Apply(m); err != nil {
		a.state = Failed
		return fmt.Errorf("%w: puzzle %s move %d %s: %w", ErrBrokenSolution, a.puzzle.ID, a.index, m, err)
	}
	a.history = append(a.history, m)
	a.index++
	a.state = AwaitingSolverMove
	if a.index >= len(a.puzzle.Moves) {
		a.state = Solved
	}
	return nil
}

// Play submits a solver move.
//
// An illegal move returns ErrIllegalMove and leaves the attempt unchanged. A
// pawn move to the last rank without a piece returns ErrPromotionRequired and
// waits for Promote. A legal move that is not the recorded one fails the
// attempt with a *WrongMoveError.
func (a *Attempt) Play(m chess.Move) (Outcome, error) {
	switch a.state {
	case AwaitingSolverMove:
	case AwaitingPromotionChoice:
		// A fresh move replaces the pending promotion.
		a.state = AwaitingSolverMove
		a.pending = chess.Move{}
	default:
		return Outcome{State: a.state}, ErrAttemptOver
	}

	if a.board.NeedsPromotion(m) {
		a.pending = m
		a.state = AwaitingPromotionChoice
		return Outcome{State: a.state}, fmt.Errorf("%w: %s", ErrPromotionRequired, m)
	}
	if !a.board.IsLegal(m) {
		return Outcome{State: a.state}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}

	expected := a.puzzle.Moves[a.index]
	if m == expected {
		return a.advance(m)
	}
	if a.opts.AcceptAlternateMates && a.board.MatesAfter(m) {
		if err := a.board.Apply(m); err != nil {
			return Outcome{State: a.state}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
		}
		a.history = append(a.history, m)
		a.index = len(a.puzzle.Moves)
		a.state = Solved
		return Outcome{State: a.state, Alternate: true}, nil
	}

	a.state = Failed
	return Outcome{State: a.state}, &WrongMoveError{Played: m, Expected: expected}
}

func (a *Attempt) advance(m chess.Move) (Outcome, error) {
	if err := a.board.Apply(m); err != nil {
		return Outcome{State: a.state}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	a.history = append(a.history, m)
	a.index++
	if a.index >= len(a.puzzle.Moves) {
		a.state = Solved
		return Outcome{State: a.state}, nil
	}

	reply := a.puzzle.Moves[a.index]
	if err := a.reveal(); err != nil {
		return Outcome{State: a.state}, err
	}
	return Outcome{State: a.state, Reply: reply, HasReply: true}, nil
}

// Promote supplies the piece for a pending promotion and judges the
// completed move.
func (a *Attempt) Promote(piece byte) (Outcome, error) {
	if a.state != AwaitingPromotionChoice {
		return Outcome{State: a.state}, ErrNoPendingPromotion
	}
	p, ok := chess.NormalizePromo(piece)
	if !ok {
		return Outcome{State: a.state}, fmt.Errorf("%w: %q", ErrInvalidPromotion, piece)
	}
	m := a.pending.WithPromo(p)
	a.pending = chess.Move{}
	a.state = AwaitingSolverMove
	return a.Play(m)
}

// Hint returns the origin square of the expected move.
func (a *Attempt) Hint() (chess.Square, bool) {
	if a.state != AwaitingSolverMove {
		return chess.NoSquare, false
	}
	return a.puzzle.Moves[a.index].From, true
}

// Expected returns the move the solver should play next. After a wrong move
// it is the move that was missed.
func (a *Attempt) Expected() (chess.Move, bool) {
	if a.index >= len(a.puzzle.Moves) {
		return chess.Move{}, false
	}
	return a.puzzle.Moves[a.index], true
}

// Pending returns the move waiting for a promotion piece.
func (a *Attempt) Pending() (chess.Move, bool) {
	return a.pending, a.state == AwaitingPromotionChoice
}

// Reveal returns the remainder of the recorded solution from the current
// position. It does not change the attempt.
func (a *Attempt) Reveal() []chess.Move {
	if a.index >= len(a.puzzle.Moves) {
		return nil
	}
	return append([]chess.Move(nil), a.puzzle.Moves[a.index:]...)
}

// Restart replays the puzzle from its initial position.
func (a *Attempt) Restart() error {
	return a.reset()
}

// FEN exports the current board for analysis.
func (a *Attempt) FEN() string {
	return a.board.FEN()
}

// Played lists every move applied so far, revealing moves included.
func (a *Attempt) Played() []chess.Move {
	return append([]chess.Move(nil), a.history...)
}

// LastMove returns the most recently applied move.
func (a *Attempt) LastMove() (chess.Move, bool) {
	if len(a.history) == 0 {
		return chess.Move{}, false
	}
	return a.history[len(a.history)-1], true
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// Index is the position in the solution of the next expected move.
func (a *Attempt) Index() int { return a.index }

// Puzzle returns the puzzle being solved.
func (a *Attempt) Puzzle() *puzzle.Puzzle { return a.puzzle }

// ToMove is the color whose move the attempt is waiting for.
func (a *Attempt) ToMove() chess.Color { return a.board.SideToMove() }
