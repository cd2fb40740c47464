package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/puzzle"
	"github.com/runnerr0/puzzler/internal/session"
)

// DefaultBatchSize is how many rows are read between cancellation checks.
const DefaultBatchSize = 1024

// Progress is reported once per batch.
type Progress struct {
	RowsScanned    int
	Matches        int
	DecodeFailures int
}

// Scanner performs single-pass scans. It holds no per-scan state and may be
// shared between goroutines.
type Scanner struct {
	batchSize int
	logger    zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBatchSize sets the cancellation and progress granularity.
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the scanner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner returns a scanner with default batch size and a no-op logger.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{batchSize: DefaultBatchSize, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads src until the end of the corpus or until limit matches are
// collected (limit <= 0 means no limit).
//
// If ctx is cancelled the session holds the matches found so far, is marked
// Partial, and the error is nil. Failing to open the source returns
// ErrCorpusMissing or ErrCorpusUnreadable with no session. A read failure
// mid-stream returns the partial session together with an
// ErrCorpusUnreadable error.
func (s *Scanner) Scan(ctx context.Context, src Source, pred filter.Predicate, limit int) (*session.SearchSession, error) {
	return s.scan(ctx, src, pred, limit, nil)
}

func (s *Scanner) scan(ctx context.Context, src Source, pred filter.Predicate, limit int, report func(Progress)) (*session.SearchSession, error) {
	log := s.logger.With().Str("source", src.Name()).Logger()

	rc, err := src.Open(ctx)
	if err != nil {
		scansTotal.WithLabelValues(resultError).Inc()
		return nil, err
	}
	defer rc.Close()

	var (
		matches  []*puzzle.Puzzle
		progress Progress
		result   = resultComplete
		scanErr  error
	)
	finish := func() (*session.SearchSession, error) {
		sess := session.New(matches)
		sess.RowsScanned = progress.RowsScanned
		sess.DecodeFailures = progress.DecodeFailures
		sess.Partial = result == resultCancelled || result == resultError
		sess.Err = scanErr
		scansTotal.WithLabelValues(result).Inc()
		log.Debug().
			Str("result", result).
			Int("rows", progress.RowsScanned).
			Int("matches", len(matches)).
			Int("decode_failures", progress.DecodeFailures).
			Msg("Scan finished")
		if report != nil {
			report(progress)
		}
		return sess, scanErr
	}

	if pred.MatchesNothing() {
		return finish()
	}

	r := csv.NewReader(rc)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	schema := puzzle.DefaultSchema
	first := true
	line := 0

	for {
		if line%s.batchSize == 0 {
			if ctx.Err() != nil {
				result = resultCancelled
				return finish()
			}
			if report != nil && line > 0 {
				report(progress)
			}
		}

		record, err := r.Read()
		if err == io.EOF {
			return finish()
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				progress.RowsScanned++
				progress.DecodeFailures++
				rowsScanned.Inc()
				decodeFailures.WithLabelValues("csv").Inc()
				log.Debug().Err(err).Int("line", line).Msg("Skipping unparsable row")
				continue
			}
			result = resultError
			scanErr = fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, src.Name(), err)
			return finish()
		}

		if first {
			first = false
			if puzzle.IsHeader(record) {
				schema, err = puzzle.SchemaFromHeader(record)
				if err != nil {
					result = resultError
					scanErr = fmt.Errorf("%w: %s: %w", ErrCorpusUnreadable, src.Name(), err)
					return finish()
				}
				log.Debug().Int("columns", schema.Width()).Msg("Using corpus header")
				continue
			}
		}

		progress.RowsScanned++
		rowsScanned.Inc()

		p, err := puzzle.Decode(schema, record)
		if err != nil {
			progress.DecodeFailures++
			decodeFailures.WithLabelValues(failureKind(err)).Inc()
			log.Debug().Err(err).Int("line", line).Msg("Skipping malformed row")
			continue
		}
		if !pred.Matches(p) {
			continue
		}
		matches = append(matches, p)
		progress.Matches = len(matches)
		if limit > 0 && len(matches) >= limit {
			result = resultLimit
			return finish()
		}
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, puzzle.ErrInvalidMove):
		return "invalid_move"
	case errors.Is(err, puzzle.ErrInvalidNumber):
		return "invalid_number"
	default:
		return "malformed_row"
	}
}
