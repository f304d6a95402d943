package vmware

import (
	"context"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/types"

	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

// CreateSnapshot creates a snapshot of a virtual machine, capturing its
// current state, and waits for the task to finish.
//
// Parameters:
//   - ctx: the context for the API request.
//   - req: the CreateSnapshotRequest; see its field documentation.
//
// Returns a classified error if the task cannot be created or fails
// during execution.
func (c *EndpointClient) CreateSnapshot(ctx context.Context, req CreateSnapshotRequest) error {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	vm := c.vmFromMoid(req.VMID)

	task, err := vm.CreateSnapshot(opCtx, req.Name, req.Description, req.Memory, req.Quiesce)
	if err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "create snapshot", err)
	}

	if err := task.Wait(opCtx); err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "create snapshot", err)
	}
	return nil
}

// DeleteSnapshot removes a single snapshot by its managed object ID and
// waits for the task to finish. The request always carries
// removeChildren=false; chain policy is enforced before this call.
func (c *EndpointClient) DeleteSnapshot(ctx context.Context, req DeleteSnapshotRequest) error {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	removeChildren := false
	spec := types.RemoveSnapshot_Task{
		This:           types.ManagedObjectReference{Type: "VirtualMachineSnapshot", Value: req.SnapshotID},
		RemoveChildren: removeChildren,
	}

	res, err := methods.RemoveSnapshot_Task(opCtx, c.gc.Client, &spec)
	if err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "delete snapshot", err)
	}

	task := object.NewTask(c.gc.Client, res.Returnval)
	if err := task.Wait(opCtx); err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "delete snapshot", err)
	}
	return nil
}
