// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"sync"
	"time"
)

// Runner serializes enrichment runs and retains the last status for
// the HTTP API. At most one run is in flight at a time.
type Runner struct {
	deps Deps

	mu      sync.Mutex
	running bool
	last    Status
}

// NewRunner creates a runner over a fixed dependency set.
func NewRunner(deps Deps) *Runner {
	return &Runner{
		deps: deps,
		last: Status{State: StatePending},
	}
}

// Run executes one enrichment run synchronously. It returns
// ErrAlreadyRunning if a run is already in flight.
func (r *Runner) Run(ctx context.Context) (Status, error) {
	if !r.begin() {
		return r.Status(), ErrAlreadyRunning
	}

	status, err := Enrich(ctx, r.deps)
	r.finish(status)
	return status, err
}

// Start launches an enrichment run in the background. It returns
// ErrAlreadyRunning if a run is already in flight.
func (r *Runner) Start(ctx context.Context) error {
	if !r.begin() {
		return ErrAlreadyRunning
	}

	go func() {
		status, _ := Enrich(ctx, r.deps)
		r.finish(status)
	}()
	return nil
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.last = Status{State: StateRunning}
	return true
}

func (r *Runner) finish(status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.last = status
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns the status of the last (or current) run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// LastRun reports the finish time and error message of the last
// completed run, for readiness checks. A zero time means no run has
// completed yet.
func (r *Runner) LastRun() (time.Time, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last.State == StateCompleted || r.last.State == StateFailed {
		return r.last.Finished, r.last.Error
	}
	return time.Time{}, ""
}
