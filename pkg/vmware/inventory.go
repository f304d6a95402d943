package vmware

import (
	"context"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

// HealthCheck asks the service instance for its current time. The call
// is cheap, requires no privileges beyond a valid session, and fails
// fast when the session has been recycled server-side.
func (c *EndpointClient) HealthCheck(ctx context.Context) error {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	if _, err := methods.GetCurrentTime(opCtx, c.gc.Client); err != nil {
		return srvErrors.ClassifyEndpointError(c.hostname, "health check", err)
	}
	return nil
}

// FetchVMs lists every virtual machine in the endpoint's inventory via a
// container view over the root folder.
func (c *EndpointClient) FetchVMs(ctx context.Context) ([]models.VirtualMachine, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	m := view.NewManager(c.gc.Client)
	v, err := m.CreateContainerView(opCtx, c.gc.ServiceContent.RootFolder, []string{"VirtualMachine"}, true)
	if err != nil {
		return nil, srvErrors.ClassifyEndpointError(c.hostname, "fetch vms", err)
	}
	// Views leak server-side if not destroyed.
	defer func() { _ = v.Destroy(opCtx) }()

	var machines []mo.VirtualMachine
	if err := v.Retrieve(opCtx, []string{"VirtualMachine"}, []string{"name"}, &machines); err != nil {
		return nil, srvErrors.ClassifyEndpointError(c.hostname, "fetch vms", err)
	}

	vms := make([]models.VirtualMachine, 0, len(machines))
	for _, machine := range machines {
		vms = append(vms, models.VirtualMachine{
			ID:        machine.Self.Value,
			SessionID: c.sessionID,
			Hostname:  c.hostname,
			Name:      machine.Name,
		})
	}
	return vms, nil
}

// FetchSnapshots returns the flat snapshot records of one VM. Parent
// links are preserved so the forest builder can reconstruct the tree;
// the vendor's nested structure is flattened here and nowhere else.
func (c *EndpointClient) FetchSnapshots(ctx context.Context, vmID string) ([]models.Snapshot, error) {
	opCtx, cancel := c.opCtx(ctx)
	defer cancel()

	vm := c.vmFromMoid(vmID)
	var mvm mo.VirtualMachine
	if err := vm.Properties(opCtx, vm.Reference(), []string{"snapshot"}, &mvm); err != nil {
		return nil, srvErrors.ClassifyEndpointError(c.hostname, "fetch snapshots", err)
	}

	if mvm.Snapshot == nil {
		return nil, nil
	}
	return flattenSnapshotTree(vmID, "", mvm.Snapshot.RootSnapshotList), nil
}

func flattenSnapshotTree(vmID, parentID string, nodes []types.VirtualMachineSnapshotTree) []models.Snapshot {
	var out []models.Snapshot
	for _, node := range nodes {
		out = append(out, models.Snapshot{
			ID:          node.Snapshot.Value,
			VMID:        vmID,
			Name:        node.Name,
			Description: node.Description,
			CreatedAt:   node.CreateTime,
			CreatedBy:   ExtractCreator(node.Description),
			Memory:      node.State == types.VirtualMachinePowerStatePoweredOn,
			ParentID:    parentID,
		})
		out = append(out, flattenSnapshotTree(vmID, node.Snapshot.Value, node.ChildSnapshotList)...)
	}
	return out
}

// vmFromMoid constructs a VM reference from a managed object ID without
// validating that the VM still exists.
func (c *EndpointClient) vmFromMoid(moid string) *object.VirtualMachine {
	ref := types.ManagedObjectReference{
		Type:  "VirtualMachine",
		Value: moid,
	}
	return object.NewVirtualMachine(c.gc.Client, ref)
}
