package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/executor"
	"github.com/vmops/snapfleet/internal/models"
)

const refreshTimeout = 2 * time.Minute

// RunService starts bulk runs and refreshes the inventory wholesale
// once each run finishes, so the forests every delete is checked
// against go stale for at most one run.
type RunService struct {
	exec      *executor.Executor
	inventory *InventoryService
	log       *zap.SugaredLogger

	mu      sync.Mutex
	lastRun *executor.Run
}

func NewRunService(exec *executor.Executor, inventory *InventoryService) *RunService {
	return &RunService{
		exec:      exec,
		inventory: inventory,
		log:       zap.S().Named("runs"),
	}
}

// Start launches a bulk run. The returned handle is live; its summary
// becomes valid when Done closes.
func (s *RunService) Start(ctx context.Context, tasks []models.BulkTask, cfg executor.Config) (*executor.Run, error) {
	run, err := s.exec.Start(ctx, tasks, cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	go func() {
		<-run.Done()
		refreshCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		s.inventory.Refresh(refreshCtx)
	}()

	return run, nil
}

// Active returns the in-flight run, if any.
func (s *RunService) Active() (*executor.Run, bool) {
	return s.exec.Active()
}

// LastRun returns the most recently started run, finished or not.
func (s *RunService) LastRun() (*executor.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastRun != nil
}

// Cancel requests cooperative cancellation of the active run. Returns
// false when nothing is running.
func (s *RunService) Cancel() bool {
	run, ok := s.exec.Active()
	if !ok {
		return false
	}
	s.log.Infow("cancelling bulk run", "run_id", run.ID())
	run.Cancel()
	return true
}
