package corpus

import (
	"context"

	"github.com/runnerr0/puzzler/internal/filter"
	"github.com/runnerr0/puzzler/internal/session"
)

// Result is delivered once when a Job finishes.
type Result struct {
	Session *session.SearchSession
	Err     error
}

// Job is a scan running on its own goroutine. Progress updates are dropped
// when the consumer falls behind; the final result is never dropped.
type Job struct {
	progress chan Progress
	done     chan Result
	finished chan struct{}
	cancel   context.CancelFunc
	result   Result
}

// Start runs a scan in the background. Cancelling ctx or calling Cancel stops
// it at the next batch boundary.
func (s *Scanner) Start(ctx context.Context, src Source, pred filter.Predicate, limit int) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		progress: make(chan Progress, 16),
		done:     make(chan Result, 1),
		finished: make(chan struct{}),
		cancel:   cancel,
	}

	go func() {
		defer cancel()
		sess, err := s.scan(ctx, src, pred, limit, func(p Progress) {
			select {
			case j.progress <- p:
			default:
			}
		})
		close(j.progress)

		j.result = Result{Session: sess, Err: err}
		close(j.finished)
		j.done <- j.result
		close(j.done)
	}()

	return j
}

// Progress streams per-batch progress. The channel is closed before the
// result is delivered.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// Done delivers the result once.
func (j *Job) Done() <-chan Result {
	return j.done
}

// Cancel asks the scan to stop. The result is still delivered, marked
// Partial.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes and returns its result. It may be called
// any number of times, independently of Done.
func (j *Job) Wait() Result {
	<-j.finished
	return j.result
}
