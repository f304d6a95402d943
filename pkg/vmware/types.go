package vmware

import (
	"context"

	"github.com/vmops/snapfleet/internal/models"
)

// Client is the narrow surface the session pool and bulk executor see.
// It hides the vendor SDK's object graph: callers get flat inventory
// records and issue mutations by opaque ids only.
type Client interface {
	Hostname() string

	// HealthCheck issues a lightweight liveness call against the
	// endpoint's service instance.
	HealthCheck(ctx context.Context) error

	FetchVMs(ctx context.Context) ([]models.VirtualMachine, error)
	FetchSnapshots(ctx context.Context, vmID string) ([]models.Snapshot, error)

	CreateSnapshot(ctx context.Context, req CreateSnapshotRequest) error
	DeleteSnapshot(ctx context.Context, req DeleteSnapshotRequest) error

	Logout(ctx context.Context) error
}

// CreateSnapshotRequest contains the parameters needed to create a
// snapshot of a VM.
//
// Fields:
//   - VMID: the managed object ID of the virtual machine.
//   - Name: the name to assign to the new snapshot.
//   - Description: a description of the snapshot's purpose or content.
//   - Memory: if true, includes the VM's memory state in the snapshot.
//   - Quiesce: if true, attempts to quiesce the guest file system first.
type CreateSnapshotRequest struct {
	VMID        string
	Name        string
	Description string
	Memory      bool
	Quiesce     bool
}

// DeleteSnapshotRequest names the snapshot a delete operation removes.
// Children are never removed implicitly; a snapshot with children is
// rejected locally before any request is built.
type DeleteSnapshotRequest struct {
	VMID       string
	SnapshotID string
}
