package sessions_test

import (
	"context"
	"sync"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/pkg/credentials"
	"github.com/vmops/snapfleet/pkg/vmware"
)

type fakeProvider struct {
	mu      sync.Mutex
	secrets map[string]credentials.Secret
	invalid map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		secrets: make(map[string]credentials.Secret),
		invalid: make(map[string]bool),
	}
}

func (p *fakeProvider) set(ref models.CredentialRef, secret credentials.Secret) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[ref.Hostname] = secret
}

func (p *fakeProvider) revoke(ref models.CredentialRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalid[ref.Hostname] = true
}

func (p *fakeProvider) Resolve(ref models.CredentialRef) (credentials.Secret, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalid[ref.Hostname] {
		return credentials.Secret{}, credentials.ErrInvalid
	}
	s, ok := p.secrets[ref.Hostname]
	if !ok {
		return credentials.Secret{}, credentials.ErrInvalid
	}
	return s, nil
}

// fakeClient implements vmware.Client with scriptable failures and call
// counters.
type fakeClient struct {
	hostname string

	mu           sync.Mutex
	healthErr    error
	healthCalls  int
	deleteCalls  int
	createCalls  int
	logoutCalls  int
	vms          []models.VirtualMachine
	snapshots    map[string][]models.Snapshot
	createErr    error
	deleteErr    error
	fetchVMsErr  error
	fetchSnapErr error
}

func newFakeClient(hostname string) *fakeClient {
	return &fakeClient{
		hostname:  hostname,
		snapshots: make(map[string][]models.Snapshot),
	}
}

func (c *fakeClient) Hostname() string { return c.hostname }

func (c *fakeClient) setHealthErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthErr = err
}

func (c *fakeClient) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthCalls++
	return c.healthErr
}

func (c *fakeClient) FetchVMs(ctx context.Context) ([]models.VirtualMachine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vms, c.fetchVMsErr
}

func (c *fakeClient) FetchSnapshots(ctx context.Context, vmID string) ([]models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[vmID], c.fetchSnapErr
}

func (c *fakeClient) CreateSnapshot(ctx context.Context, req vmware.CreateSnapshotRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	return c.createErr
}

func (c *fakeClient) DeleteSnapshot(ctx context.Context, req vmware.DeleteSnapshotRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteCalls++
	return c.deleteErr
}

func (c *fakeClient) DeleteCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteCalls
}

func (c *fakeClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logoutCalls++
	return nil
}
