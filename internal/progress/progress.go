// Package progress tracks how many tasks of a batch have completed.
package progress

import (
	"fmt"
	"sync"
	"time"

	"pricewatch/internal/models"
)

// Sink receives every new state. It is called with the reporter's lock
// held, so successive calls see strictly increasing counts.
type Sink func(state models.ProgressState)

// Reporter is a mutex-guarded completion counter.
type Reporter struct {
	startedAt time.Time
	sink      Sink
	mu        sync.Mutex
	completed int
	total     int
}

// NewReporter creates a reporter for total tasks. sink may be nil.
func NewReporter(total int, sink Sink) *Reporter {
	return &Reporter{
		total:     total,
		startedAt: time.Now(),
		sink:      sink,
	}
}

// Increment records one completed task and returns the new count.
func (r *Reporter) Increment() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed++

	if r.sink != nil {
		r.sink(r.stateLocked())
	}

	return r.completed
}

// Completed returns the current count.
func (r *Reporter) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.completed
}

// Percent returns completion as a percentage.
func (r *Reporter) Percent() float64 {
	return r.State().Percent()
}

// State returns a snapshot of the progress.
func (r *Reporter) State() models.ProgressState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stateLocked()
}

func (r *Reporter) stateLocked() models.ProgressState {
	return models.ProgressState{
		StartedAt: r.startedAt,
		Completed: r.completed,
		Total:     r.total,
	}
}

// String renders "[Progress] 12.34% (n/total)".
func (r *Reporter) String() string {
	return Format(r.State())
}

// Format renders a progress state with two-decimal precision.
func Format(s models.ProgressState) string {
	return fmt.Sprintf("[Progress] %.2f%% (%d/%d)", s.Percent(), s.Completed, s.Total)
}
