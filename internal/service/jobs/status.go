// Package jobs computes aggregate status over analysis job sets and guards
// the invariants the polling loop depends on: terminal states are
// monotonic, and the "any job still pending" predicate is the sole signal
// that keeps a poll loop alive.
package jobs

import (
	"errors"
	"sync"

	"voice-analysis-client/internal/models"
)

// ErrStalled is returned when the job list stayed empty for more
// consecutive polls than the configured bound.
var ErrStalled = errors.New("no analysis jobs materialized after repeated polls")

// AnyPending returns true iff at least one job is queued or processing.
// Recomputed after every refresh; the scheduler stops exactly when this
// turns false.
func AnyPending(list []models.AnalysisJob) bool {
	for i := range list {
		if list[i].Status.IsPending() {
			return true
		}
	}
	return false
}

// Terminal returns the subset of jobs in completed or failed state.
func Terminal(list []models.AnalysisJob) []models.AnalysisJob {
	var out []models.AnalysisJob
	for i := range list {
		if list[i].Status.IsTerminal() {
			out = append(out, list[i])
		}
	}
	return out
}

// Reconcile merges a freshly polled job over the previously observed copy.
// Once a job has been seen completed or failed it never transitions again;
// if a later poll reports a terminal job as non-terminal the previous copy
// wins and the regression is flagged to the caller.
func Reconcile(prev *models.AnalysisJob, next models.AnalysisJob) (models.AnalysisJob, bool) {
	if prev == nil {
		return next, false
	}
	if prev.Status.IsTerminal() && !next.Status.IsTerminal() {
		return *prev, true
	}
	return next, false
}

// StallDetector counts consecutive empty job-list observations. An empty
// list right after start-jobs is treated as "not ready yet" rather than
// "nothing to do", but only up to a bounded number of polls.
// Thread-safe for concurrent access.
type StallDetector struct {
	mu          sync.Mutex
	limit       int
	consecutive int
}

// NewStallDetector creates a detector that trips after limit consecutive
// empty observations.
func NewStallDetector(limit int) *StallDetector {
	if limit <= 0 {
		limit = 12
	}
	return &StallDetector{limit: limit}
}

// Observe records one poll result of n jobs. It returns ErrStalled when
// the empty streak reaches the bound, nil otherwise. A non-empty
// observation resets the streak.
func (d *StallDetector) Observe(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n > 0 {
		d.consecutive = 0
		return nil
	}
	d.consecutive++
	if d.consecutive >= d.limit {
		return ErrStalled
	}
	return nil
}

// EmptyStreak returns the current count of consecutive empty observations.
func (d *StallDetector) EmptyStreak() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consecutive
}

// Reset clears the streak, e.g. when a new polling campaign starts.
func (d *StallDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consecutive = 0
}
