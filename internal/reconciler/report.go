package reconciler

import (
	"time"

	"github.com/avelinec/hubsync/internal/diff"
)

// Outcome classifies the result of one operation.
type Outcome string

const (
	// OutcomeSuccess means the operation converged its integration.
	OutcomeSuccess Outcome = "success"
	// OutcomeSkipped means the operation was not applicable, e.g. an
	// options patch for a platform without an options protocol, or an
	// operation abandoned because the pass was cancelled.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeError means the operation failed; the next pass retries.
	OutcomeError Outcome = "error"
)

// Entry is the reported result for one configuration id.
type Entry struct {
	ID      string
	Action  diff.Action
	Outcome Outcome
	Detail  string
	Err     error
}

// Report is the sole externally observable result of a reconciliation
// pass. Entries appear in plan order.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Entries   []Entry
}

// Failures returns the entries that ended in error.
func (r *Report) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Outcome == OutcomeError {
			out = append(out, e)
		}
	}
	return out
}

// HasFailures reports whether any entry ended in error.
func (r *Report) HasFailures() bool {
	return len(r.Failures()) > 0
}

// Counts returns the number of successful, skipped and failed entries.
func (r *Report) Counts() (success, skipped, failed int) {
	for _, e := range r.Entries {
		switch e.Outcome {
		case OutcomeSuccess:
			success++
		case OutcomeSkipped:
			skipped++
		case OutcomeError:
			failed++
		}
	}
	return success, skipped, failed
}
