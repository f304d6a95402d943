// Package v1 holds the wire types of the HTTP API and their
// conversions from internal models.
package v1

import (
	"time"

	"github.com/google/uuid"

	"github.com/vmops/snapfleet/internal/executor"
	"github.com/vmops/snapfleet/internal/filter"
	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/services"
)

type Session struct {
	Id        uuid.UUID `json:"id"`
	Hostname  string    `json:"hostname"`
	Username  string    `json:"username"`
	State     string    `json:"state"`
	LastError *string   `json:"lastError,omitempty"`
	Terminal  bool      `json:"terminal,omitempty"`
}

func NewSessionFromHealth(h services.SessionHealth) Session {
	s := Session{
		Id:       h.ID,
		Hostname: h.Endpoint.Hostname,
		Username: h.Endpoint.CredentialRef.Username,
		State:    string(h.State),
	}
	if h.LastError != nil {
		msg := h.LastError.Error()
		s.LastError = &msg
	}
	if h.LastEvent != nil && h.LastEvent.Terminal && h.State != models.SessionStateConnected {
		s.Terminal = true
	}
	return s
}

type RegisterEndpointRequest struct {
	Hostname  string `json:"hostname" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	VerifySSL bool   `json:"verifySsl"`
}

// Settings are the operator's standing preferences, persisted across
// restarts. AgeMode is the default age unit applied when a query does
// not name one; DefaultCriteria is the standing filter the UI starts
// from.
type Settings struct {
	AgeMode         string                `json:"ageMode,omitempty"`
	DefaultCriteria *SnapshotQueryRequest `json:"defaultCriteria,omitempty"`
}

type SnapshotQueryRequest struct {
	Query         string     `json:"query,omitempty"`
	VMName        string     `json:"vmName,omitempty"`
	SnapshotName  string     `json:"snapshotName,omitempty"`
	Description   string     `json:"description,omitempty"`
	Hostname      string     `json:"hostname,omitempty"`
	Creator       string     `json:"creator,omitempty"`
	CreatedAfter  *time.Time `json:"createdAfter,omitempty"`
	CreatedBefore *time.Time `json:"createdBefore,omitempty"`
	MinAgeDays    int        `json:"minAgeDays,omitempty"`
	AgeMode       string     `json:"ageMode,omitempty"`
	Kinds         []string   `json:"kinds,omitempty"`
}

func (r SnapshotQueryRequest) Criteria() filter.Criteria {
	criteria := filter.Criteria{
		VMName:       r.VMName,
		SnapshotName: r.SnapshotName,
		Description:  r.Description,
		Hostname:     r.Hostname,
		Creator:      r.Creator,
		MinAgeDays:   r.MinAgeDays,
		AgeMode:      forest.AgeMode(r.AgeMode),
	}
	if r.CreatedAfter != nil {
		criteria.CreatedAfter = *r.CreatedAfter
	}
	if r.CreatedBefore != nil {
		criteria.CreatedBefore = *r.CreatedBefore
	}
	for _, k := range r.Kinds {
		criteria.Kinds = append(criteria.Kinds, forest.Kind(k))
	}
	return criteria
}

type Snapshot struct {
	Id              string    `json:"id"`
	VmId            string    `json:"vmId"`
	VmName          string    `json:"vmName"`
	Hostname        string    `json:"hostname"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	CreatedBy       string    `json:"createdBy"`
	Memory          bool      `json:"memory"`
	Kind            string    `json:"kind"`
	ChainProtected  bool      `json:"chainProtected"`
	AgeBusinessDays int       `json:"ageBusinessDays"`
	AgeCalendarDays int       `json:"ageCalendarDays"`
}

func NewSnapshotFromView(v filter.SnapshotView) Snapshot {
	return Snapshot{
		Id:              v.Snapshot.ID,
		VmId:            v.VMID,
		VmName:          v.VMName,
		Hostname:        v.Hostname,
		Name:            v.Snapshot.Name,
		Description:     v.Snapshot.Description,
		CreatedAt:       v.Snapshot.CreatedAt,
		CreatedBy:       v.Snapshot.CreatedBy,
		Memory:          v.Snapshot.Memory,
		Kind:            string(v.Kind),
		ChainProtected:  v.ChainProtected,
		AgeBusinessDays: v.AgeBusinessDays,
		AgeCalendarDays: v.AgeCalendarDays,
	}
}

type CreateTaskParams struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Memory      bool   `json:"memory,omitempty"`
	Quiesce     bool   `json:"quiesce,omitempty"`
}

type DeleteTaskParams struct {
	SnapshotId string `json:"snapshotId" binding:"required"`
}

type Task struct {
	Kind      string            `json:"kind" binding:"required,oneof=create delete"`
	SessionId uuid.UUID         `json:"sessionId" binding:"required"`
	VmId      string            `json:"vmId" binding:"required"`
	VmName    string            `json:"vmName,omitempty"`
	Create    *CreateTaskParams `json:"create,omitempty"`
	Delete    *DeleteTaskParams `json:"delete,omitempty"`
}

type StartRunRequest struct {
	Operator    string `json:"operator,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	Tasks       []Task `json:"tasks" binding:"required,min=1,dive"`
}

func (r StartRunRequest) BulkTasks() []models.BulkTask {
	tasks := make([]models.BulkTask, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		task := models.BulkTask{
			ID:        uuid.New(),
			Kind:      models.OperationKind(t.Kind),
			SessionID: t.SessionId,
			VMID:      t.VmId,
			VMName:    t.VmName,
		}
		if t.Create != nil {
			task.Create = &models.CreateParams{
				Name:        t.Create.Name,
				Description: t.Create.Description,
				Memory:      t.Create.Memory,
				Quiesce:     t.Create.Quiesce,
			}
		}
		if t.Delete != nil {
			task.Delete = &models.DeleteParams{SnapshotID: t.Delete.SnapshotId}
		}
		if task.Kind == models.OperationCreate && task.Create == nil {
			task.Create = &models.CreateParams{}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

type ProgressReport struct {
	RunId      uuid.UUID `json:"runId"`
	Seq        uint64    `json:"seq"`
	Pending    int       `json:"pending"`
	InFlight   int       `json:"inFlight"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	LastStatus string    `json:"lastStatus,omitempty"`
	Time       time.Time `json:"time"`
}

func NewProgressReport(r models.ProgressReport) ProgressReport {
	return ProgressReport{
		RunId:      r.RunID,
		Seq:        r.Seq,
		Pending:    r.Pending,
		InFlight:   r.InFlight,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Cancelled:  r.Cancelled,
		LastStatus: r.LastStatus,
		Time:       r.Time,
	}
}

type FailedTask struct {
	Kind   string `json:"kind"`
	VmId   string `json:"vmId"`
	VmName string `json:"vmName"`
	Error  string `json:"error"`
}

type RunSummary struct {
	RunId     uuid.UUID    `json:"runId"`
	Outcome   string       `json:"outcome"`
	Succeeded int          `json:"succeeded"`
	Cancelled int          `json:"cancelled"`
	Failed    []FailedTask `json:"failed"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
}

func NewRunSummary(s models.RunSummary) RunSummary {
	failed := make([]FailedTask, 0, len(s.Failed))
	for _, f := range s.Failed {
		ft := FailedTask{
			Kind:   string(f.Task.Kind),
			VmId:   f.Task.VMID,
			VmName: f.Task.VMName,
		}
		if f.Err != nil {
			ft.Error = f.Err.Error()
		}
		failed = append(failed, ft)
	}
	return RunSummary{
		RunId:     s.RunID,
		Outcome:   string(s.Outcome),
		Succeeded: s.Succeeded,
		Cancelled: s.Cancelled,
		Failed:    failed,
		Started:   s.Started,
		Finished:  s.Finished,
	}
}

type RunStatus struct {
	RunId    uuid.UUID       `json:"runId"`
	Active   bool            `json:"active"`
	Progress *ProgressReport `json:"progress,omitempty"`
	Summary  *RunSummary     `json:"summary,omitempty"`
}

func NewRunStatus(run *executor.Run, active bool) RunStatus {
	status := RunStatus{RunId: run.ID(), Active: active}
	if report, ok := run.Latest(); ok {
		p := NewProgressReport(report)
		status.Progress = &p
	}
	if !active {
		s := NewRunSummary(run.Summary())
		status.Summary = &s
	}
	return status
}
