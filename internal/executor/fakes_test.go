package executor_test

import (
	"context"
	"sync"
	"time"

	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
	"github.com/vmops/snapfleet/pkg/vmware"
)

// fakeClient counts calls and tracks how many run at the same instant.
// Failures are scripted per call; an optional gate blocks every call
// until released.
type fakeClient struct {
	hostname string
	delay    time.Duration
	gate     chan struct{}

	mu            sync.Mutex
	createErrs    []error
	deleteErrs    []error
	createCalls   int
	createOrder   []string
	deleteCalls   int
	concurrent    int
	maxConcurrent int
	lastCreate    vmware.CreateSnapshotRequest
}

func newFakeOpClient(hostname string) *fakeClient {
	return &fakeClient{hostname: hostname}
}

func (c *fakeClient) enter() {
	c.mu.Lock()
	c.concurrent++
	if c.concurrent > c.maxConcurrent {
		c.maxConcurrent = c.concurrent
	}
	c.mu.Unlock()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.gate != nil {
		<-c.gate
	}
}

func (c *fakeClient) leave() {
	c.mu.Lock()
	c.concurrent--
	c.mu.Unlock()
}

func (c *fakeClient) CreateSnapshot(ctx context.Context, req vmware.CreateSnapshotRequest) error {
	c.enter()
	defer c.leave()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	c.createOrder = append(c.createOrder, req.VMID)
	c.lastCreate = req
	if len(c.createErrs) > 0 {
		err := c.createErrs[0]
		c.createErrs = c.createErrs[1:]
		return err
	}
	return nil
}

func (c *fakeClient) DeleteSnapshot(ctx context.Context, req vmware.DeleteSnapshotRequest) error {
	c.enter()
	defer c.leave()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteCalls++
	if len(c.deleteErrs) > 0 {
		err := c.deleteErrs[0]
		c.deleteErrs = c.deleteErrs[1:]
		return err
	}
	return nil
}

func (c *fakeClient) CreateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls
}

func (c *fakeClient) CreateOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.createOrder))
	copy(out, c.createOrder)
	return out
}

func (c *fakeClient) DeleteCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteCalls
}

func (c *fakeClient) MaxConcurrent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxConcurrent
}

func (c *fakeClient) LastCreate() vmware.CreateSnapshotRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCreate
}

func (c *fakeClient) Hostname() string { return c.hostname }

func (c *fakeClient) HealthCheck(ctx context.Context) error { return nil }

func (c *fakeClient) FetchVMs(ctx context.Context) ([]models.VirtualMachine, error) {
	return nil, nil
}

func (c *fakeClient) FetchSnapshots(ctx context.Context, vmID string) ([]models.Snapshot, error) {
	return nil, nil
}

func (c *fakeClient) Logout(ctx context.Context) error { return nil }

// fakePool maps session ids straight to fake clients.
type fakePool struct {
	mu      sync.Mutex
	clients map[models.SessionID]vmware.Client
}

func newFakePool() *fakePool {
	return &fakePool{clients: make(map[models.SessionID]vmware.Client)}
}

func (p *fakePool) add(id models.SessionID, client vmware.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[id] = client
}

func (p *fakePool) GetClient(id models.SessionID) (vmware.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	client, ok := p.clients[id]
	if !ok {
		return nil, srvErrors.NewNotConnectedError(id)
	}
	return client, nil
}

type forestKey struct {
	sessionID models.SessionID
	vmID      string
}

// fakeForests serves pre-built forests for the delete chain check.
type fakeForests struct {
	mu      sync.Mutex
	forests map[forestKey]*forest.Forest
}

func newFakeForests() *fakeForests {
	return &fakeForests{forests: make(map[forestKey]*forest.Forest)}
}

func (f *fakeForests) set(sessionID models.SessionID, vmID string, forest *forest.Forest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forests[forestKey{sessionID, vmID}] = forest
}

func (f *fakeForests) Forest(sessionID models.SessionID, vmID string) (*forest.Forest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fo, ok := f.forests[forestKey{sessionID, vmID}]
	return fo, ok
}
