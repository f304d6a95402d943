// Package executor runs bulk snapshot operations against many VMs with
// a global concurrency cap. Tasks are isolated from each other, spread
// across endpoints before going deep on one, and re-checked against
// the chain annotation before any delete leaves the process.
package executor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
	"github.com/vmops/snapfleet/pkg/scheduler"
	"github.com/vmops/snapfleet/pkg/vmware"
)

const (
	// DefaultSnapshotName is used when a create task leaves the name
	// empty, matching the fleet's standing patching workflow.
	DefaultSnapshotName = "Monthly OS Patching"

	DefaultConcurrency  = 5
	DefaultTaskAttempts = 2
	DefaultRetryBackoff = 2 * time.Second
)

// ClientPool hands out endpoint clients. Satisfied by sessions.Pool.
// Each task fetches its client immediately before use so a mid-run
// session recycle stays transparent to the task.
type ClientPool interface {
	GetClient(id models.SessionID) (vmware.Client, error)
}

// ForestSource exposes the latest annotated forest per VM for the
// pre-dispatch chain-protection check on deletes.
type ForestSource interface {
	Forest(sessionID models.SessionID, vmID string) (*forest.Forest, bool)
}

// Config carries the per-run knobs. The zero value gets defaults.
type Config struct {
	// Concurrency caps the number of in-flight tasks across all
	// endpoints.
	Concurrency int

	// Operator is appended to create descriptions as
	// " (Created by: operator)". Empty leaves descriptions untouched.
	Operator string

	// Attempts is the per-task attempt count for retryable errors.
	Attempts int

	// RetryBackoff is the pause between per-task attempts.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Attempts <= 0 {
		c.Attempts = DefaultTaskAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Executor owns bulk run execution. One run at a time: inventory is
// refetched wholesale after a run, so overlapping runs would race on
// the forests their deletes are checked against.
type Executor struct {
	pool    ClientPool
	forests ForestSource
	log     *zap.SugaredLogger

	mu     sync.Mutex
	active *Run
}

func NewExecutor(pool ClientPool, forests ForestSource) *Executor {
	return &Executor{
		pool:    pool,
		forests: forests,
		log:     zap.S().Named("executor"),
	}
}

// Active returns the running bulk run, if any.
func (e *Executor) Active() (*Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.active != nil
}

// Start launches a bulk run over the given tasks and returns its
// handle. Fails with RunInProgressError while another run is active.
func (e *Executor) Start(ctx context.Context, tasks []models.BulkTask, cfg Config) (*Run, error) {
	cfg = cfg.withDefaults()

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, srvErrors.NewRunInProgressError()
	}
	run := newRun(interleave(tasks))
	e.active = run
	e.mu.Unlock()

	e.log.Infow("bulk run started", "run_id", run.id, "tasks", len(tasks), "concurrency", cfg.Concurrency)

	// The run outlives the request that started it. Only Cancel stops
	// it, never the caller's context.
	go e.execute(context.WithoutCancel(ctx), run, cfg)
	return run, nil
}

func (e *Executor) execute(ctx context.Context, run *Run, cfg Config) {
	sched := scheduler.NewScheduler(cfg.Concurrency)
	defer sched.Close()

	futures := make([]*models.Future[models.Result[any]], 0, len(run.tasks))
	for _, task := range run.tasks {
		task := task
		futures = append(futures, sched.AddWork(func(workCtx context.Context) (any, error) {
			e.runTask(workCtx, run, task, cfg)
			return nil, nil
		}))
	}
	for _, f := range futures {
		<-f.C()
	}

	// Free the slot before signalling completion so a caller woken by
	// Done can start the next run immediately.
	e.mu.Lock()
	e.active = nil
	e.mu.Unlock()

	run.close()
	e.log.Infow("bulk run finished", "run_id", run.id, "outcome", run.Summary().Outcome)
}

// runTask drives one task from pick-up to its terminal state. The task
// never aborts siblings; every failure is recorded in the run instead.
func (e *Executor) runTask(ctx context.Context, run *Run, task models.BulkTask, cfg Config) {
	if !run.begin(task) {
		return
	}

	if task.Kind == models.OperationDelete {
		if err := e.checkChain(task); err != nil {
			run.finish(models.TaskResult{Task: task, State: models.TaskStateFailed, Err: err})
			return
		}
	}

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				run.finish(models.TaskResult{Task: task, State: models.TaskStateFailed, Err: ctx.Err()})
				return
			case <-time.After(cfg.RetryBackoff):
			}
		}

		lastErr = e.dispatch(ctx, task, cfg)
		if lastErr == nil {
			run.finish(models.TaskResult{Task: task, State: models.TaskStateSucceeded})
			return
		}
		if !srvErrors.IsRetryable(lastErr) {
			break
		}
		e.log.Warnw("task attempt failed", "run_id", run.id, "task", task.String(), "attempt", attempt+1, "error", lastErr)
	}

	run.finish(models.TaskResult{Task: task, State: models.TaskStateFailed, Err: lastErr})
}

// checkChain rejects a delete locally when the latest known forest
// marks the target as chain protected. The request never reaches the
// endpoint in that case.
func (e *Executor) checkChain(task models.BulkTask) error {
	f, ok := e.forests.Forest(task.SessionID, task.VMID)
	if !ok {
		return nil
	}
	node, ok := f.Node(task.Delete.SnapshotID)
	if ok && node.ChainProtected {
		return srvErrors.NewChainProtectedError(task.VMName, node.Snapshot.ID, node.Snapshot.Name)
	}
	return nil
}

// dispatch performs the single remote call for a task. The client is
// fetched from the pool here, not at enqueue time.
func (e *Executor) dispatch(ctx context.Context, task models.BulkTask, cfg Config) error {
	client, err := e.pool.GetClient(task.SessionID)
	if err != nil {
		return err
	}

	switch task.Kind {
	case models.OperationCreate:
		params := *task.Create
		if params.Name == "" {
			params.Name = DefaultSnapshotName
		}
		if cfg.Operator != "" {
			params.Description += vmware.CreatorTag(cfg.Operator)
		}
		return client.CreateSnapshot(ctx, vmware.CreateSnapshotRequest{
			VMID:        task.VMID,
			Name:        params.Name,
			Description: params.Description,
			Memory:      params.Memory,
			Quiesce:     params.Quiesce,
		})
	case models.OperationDelete:
		return client.DeleteSnapshot(ctx, vmware.DeleteSnapshotRequest{
			VMID:       task.VMID,
			SnapshotID: task.Delete.SnapshotID,
		})
	default:
		return srvErrors.NewMalformedInventoryError(task.VMID, "unknown operation kind "+string(task.Kind))
	}
}

// interleave orders tasks round-robin across sessions so the cap is
// spread over endpoints before going depth-first on one. Order within a
// session is preserved.
func interleave(tasks []models.BulkTask) []models.BulkTask {
	var order []models.SessionID
	groups := make(map[models.SessionID][]models.BulkTask)
	for _, t := range tasks {
		if _, ok := groups[t.SessionID]; !ok {
			order = append(order, t.SessionID)
		}
		groups[t.SessionID] = append(groups[t.SessionID], t)
	}

	out := make([]models.BulkTask, 0, len(tasks))
	for len(out) < len(tasks) {
		for _, id := range order {
			if len(groups[id]) == 0 {
				continue
			}
			out = append(out, groups[id][0])
			groups[id] = groups[id][1:]
		}
	}
	return out
}
