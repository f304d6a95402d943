package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vmops/snapfleet/internal/models"
)

// Run is the handle for one bulk operation run. Progress is an
// append-only sequence of aggregate reports; consumers may sample at
// any rate, the channel drops stale reports under backpressure and the
// last report before the channel closes always carries the terminal
// counts.
type Run struct {
	id      uuid.UUID
	tasks   []models.BulkTask
	started time.Time

	progress  chan models.ProgressReport
	done      chan struct{}
	cancelled atomic.Bool

	mu        sync.Mutex
	seq       uint64
	pending   int
	inFlight  int
	succeeded int
	failed    []models.TaskResult
	dropped   int
	latest    models.ProgressReport
	summary   models.RunSummary
}

func newRun(tasks []models.BulkTask) *Run {
	return &Run{
		id:       uuid.New(),
		tasks:    tasks,
		started:  time.Now(),
		progress: make(chan models.ProgressReport, 16),
		done:     make(chan struct{}),
		pending:  len(tasks),
	}
}

func (r *Run) ID() uuid.UUID {
	return r.id
}

// Progress is the report stream. The channel closes once the run is
// finished and the terminal report has been delivered.
func (r *Run) Progress() <-chan models.ProgressReport {
	return r.progress
}

// Done closes when the run has finished and Summary is valid.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel requests cooperative cancellation. Queued tasks are marked
// cancelled when a worker picks them up; in-flight tasks finish their
// current remote call.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

func (r *Run) Summary() models.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Latest returns the most recently published report, for consumers
// that poll instead of following the stream. False before the first
// report.
func (r *Run) Latest() (models.ProgressReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.latest.Seq > 0
}

// begin moves a task from pending to in-flight. Returns false when the
// run was cancelled first; the task then goes straight to cancelled.
func (r *Run) begin(task models.BulkTask) bool {
	if r.cancelled.Load() {
		r.finish(models.TaskResult{Task: task, State: models.TaskStateCancelled})
		return false
	}
	r.mu.Lock()
	r.pending--
	r.inFlight++
	r.publishLocked(task.String() + ": in-flight")
	r.mu.Unlock()
	return true
}

// finish records a task's terminal state and publishes the new counts.
func (r *Run) finish(result models.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch result.State {
	case models.TaskStateCancelled:
		r.pending--
		r.dropped++
	case models.TaskStateSucceeded:
		r.inFlight--
		r.succeeded++
	case models.TaskStateFailed:
		r.inFlight--
		r.failed = append(r.failed, result)
	}

	status := result.Task.String() + ": " + string(result.State)
	if result.Err != nil {
		status += " (" + result.Err.Error() + ")"
	}
	r.publishLocked(status)
}

// close computes the summary, emits the terminal report and closes the
// progress stream. Called once, after every task has finished.
func (r *Run) close() {
	r.mu.Lock()
	outcome := models.RunOutcomeSuccess
	switch {
	// A cancel that landed after the last task was picked up dropped
	// nothing; the run's outcome is whatever the tasks produced.
	case r.cancelled.Load() && r.dropped > 0:
		outcome = models.RunOutcomeCancelled
	case len(r.failed) > 0:
		outcome = models.RunOutcomePartialSuccess
	}
	r.summary = models.RunSummary{
		RunID:     r.id,
		Outcome:   outcome,
		Succeeded: r.succeeded,
		Cancelled: r.dropped,
		Failed:    r.failed,
		Started:   r.started,
		Finished:  time.Now(),
	}
	r.publishLocked("run " + string(outcome))
	r.mu.Unlock()

	close(r.progress)
	close(r.done)
}

// publishLocked emits a report without ever blocking the caller: under
// backpressure the oldest buffered report is dropped to make room.
// Holding the run lock across the send keeps the observed sequence
// monotone.
func (r *Run) publishLocked(status string) {
	r.seq++
	report := models.ProgressReport{
		RunID:      r.id,
		Seq:        r.seq,
		Pending:    r.pending,
		InFlight:   r.inFlight,
		Succeeded:  r.succeeded,
		Failed:     len(r.failed),
		Cancelled:  r.dropped,
		LastStatus: status,
		Time:       time.Now(),
	}
	r.latest = report
	for {
		select {
		case r.progress <- report:
			return
		default:
			select {
			case <-r.progress:
			default:
			}
		}
	}
}
