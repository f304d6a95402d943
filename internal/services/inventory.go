package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/filter"
	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/sessions"
)

type forestKey struct {
	sessionID models.SessionID
	vmID      string
}

// VMError records one VM whose snapshots could not be fetched or whose
// ancestry was malformed. The rest of the inventory is unaffected.
type VMError struct {
	SessionID models.SessionID
	Hostname  string
	VMID      string
	VMName    string
	Err       error
}

// InventoryService holds the latest annotated snapshot inventory across
// every connected session. The inventory is rebuilt wholesale by
// Refresh, never patched in place, so readers always see a consistent
// generation.
type InventoryService struct {
	pool *sessions.Pool
	log  *zap.SugaredLogger

	mu          sync.RWMutex
	entries     []filter.Entry
	forests     map[forestKey]*forest.Forest
	vmErrors    []VMError
	refreshedAt time.Time
}

func NewInventoryService(pool *sessions.Pool) *InventoryService {
	return &InventoryService{
		pool:    pool,
		log:     zap.S().Named("inventory"),
		forests: make(map[forestKey]*forest.Forest),
	}
}

// Refresh fetches VMs and snapshots from every connected session and
// swaps the inventory in one step. A failure on one VM or one session
// is recorded and skipped; it never aborts the rest of the fetch.
func (s *InventoryService) Refresh(ctx context.Context) {
	var (
		entries  []filter.Entry
		vmErrors []VMError
	)
	forests := make(map[forestKey]*forest.Forest)

	for _, status := range s.pool.Sessions() {
		if status.State != models.SessionStateConnected {
			continue
		}
		client, err := s.pool.GetClient(status.ID)
		if err != nil {
			continue
		}
		hostname := status.Endpoint.Hostname

		vms, err := client.FetchVMs(ctx)
		if err != nil {
			s.log.Warnw("inventory fetch failed", "hostname", hostname, "error", err)
			vmErrors = append(vmErrors, VMError{SessionID: status.ID, Hostname: hostname, Err: err})
			continue
		}

		for _, vm := range vms {
			vm.SessionID = status.ID
			vm.Hostname = hostname

			snapshots, err := client.FetchSnapshots(ctx, vm.ID)
			if err != nil {
				vmErrors = append(vmErrors, VMError{
					SessionID: status.ID, Hostname: hostname,
					VMID: vm.ID, VMName: vm.Name, Err: err,
				})
				continue
			}

			f, err := forest.Build(vm.ID, snapshots)
			if err != nil {
				s.log.Warnw("snapshot ancestry rejected", "hostname", hostname, "vm", vm.Name, "error", err)
				vmErrors = append(vmErrors, VMError{
					SessionID: status.ID, Hostname: hostname,
					VMID: vm.ID, VMName: vm.Name, Err: err,
				})
				continue
			}

			entries = append(entries, filter.Entry{VM: vm, Forest: f})
			forests[forestKey{status.ID, vm.ID}] = f
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.forests = forests
	s.vmErrors = vmErrors
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	s.log.Infow("inventory refreshed", "vms", len(entries), "errors", len(vmErrors))
}

// Forest returns the latest annotated forest for one VM.
func (s *InventoryService) Forest(sessionID models.SessionID, vmID string) (*forest.Forest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forests[forestKey{sessionID, vmID}]
	return f, ok
}

// Entries returns the current inventory generation.
func (s *InventoryService) Entries() []filter.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// Errors returns the per-VM failures of the last refresh.
func (s *InventoryService) Errors() []VMError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vmErrors
}

// RefreshedAt returns when the current generation was built. Zero when
// no refresh has completed yet.
func (s *InventoryService) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Query evaluates filter criteria against the current generation.
func (s *InventoryService) Query(criteria filter.Criteria) []filter.SnapshotView {
	return filter.Evaluate(s.Entries(), criteria, time.Now())
}
