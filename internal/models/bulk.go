package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationDelete OperationKind = "delete"
)

type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateInFlight  TaskState = "in-flight"
	TaskStateSucceeded TaskState = "succeeded"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// CreateParams carries the operator-supplied snapshot parameters for a
// create task.
type CreateParams struct {
	Name        string
	Description string
	Memory      bool
	Quiesce     bool
}

// DeleteParams names the snapshot a delete task removes.
type DeleteParams struct {
	SnapshotID string
}

// BulkTask is one unit of work in a bulk run. Immutable once enqueued;
// owned exclusively by the run that dispatched it.
type BulkTask struct {
	ID        uuid.UUID
	Kind      OperationKind
	SessionID SessionID
	VMID      string
	VMName    string
	Create    *CreateParams
	Delete    *DeleteParams
}

func (t BulkTask) String() string {
	return fmt.Sprintf("%s %s/%s", t.Kind, t.VMName, t.VMID)
}

// TaskResult records the terminal state of one task.
type TaskResult struct {
	Task  BulkTask
	State TaskState
	Err   error
}

// ProgressReport is one snapshot of a run's aggregate progress. Seq is
// monotonically increasing per run; the last report always reflects the
// terminal counts.
type ProgressReport struct {
	RunID      uuid.UUID
	Seq        uint64
	Pending    int
	InFlight   int
	Succeeded  int
	Failed     int
	Cancelled  int
	LastStatus string
	Time       time.Time
}

func (r ProgressReport) Total() int {
	return r.Pending + r.InFlight + r.Succeeded + r.Failed + r.Cancelled
}

func (r ProgressReport) Done() bool {
	return r.Pending == 0 && r.InFlight == 0
}

type RunOutcome string

const (
	RunOutcomeSuccess        RunOutcome = "success"
	RunOutcomePartialSuccess RunOutcome = "partial-success"
	RunOutcomeCancelled      RunOutcome = "cancelled"
)

// RunSummary is the final result of a bulk run. Failed holds every failed
// task with its specific error so the operator sees the full list, not
// just a count.
type RunSummary struct {
	RunID     uuid.UUID
	Outcome   RunOutcome
	Succeeded int
	Cancelled int
	Failed    []TaskResult
	Started   time.Time
	Finished  time.Time
}
