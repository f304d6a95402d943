package forest

import (
	"fmt"
	"sort"

	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

// Build reconstructs the ancestry forest of one VM from an unordered
// flat snapshot list.
//
// Root detection is defensive against partial or stale inventory: a
// node whose parent id is absent or unknown in the input is treated as
// a root rather than dropped. A cycle in the input means the data is
// malformed; the builder detects it and returns MalformedInventory
// instead of looping.
//
// The same flat input always yields the same forest shape and
// protection flags: siblings are ordered by creation time, snapshot id
// as tie-break.
func Build(vmID string, snapshots []models.Snapshot) (*Forest, error) {
	index := make(map[string]*Node, len(snapshots))
	for _, snap := range snapshots {
		if _, ok := index[snap.ID]; ok {
			return nil, srvErrors.NewMalformedInventoryError(vmID, fmt.Sprintf("duplicate snapshot id %s", snap.ID))
		}
		index[snap.ID] = &Node{Snapshot: snap}
	}

	f := &Forest{VMID: vmID, index: index}
	for _, node := range index {
		parentID := node.Snapshot.ParentID
		if parentID == node.Snapshot.ID {
			return nil, srvErrors.NewMalformedInventoryError(vmID, fmt.Sprintf("snapshot %s is its own parent", node.Snapshot.ID))
		}
		parent, ok := index[parentID]
		if parentID == "" || !ok {
			f.Roots = append(f.Roots, node)
			continue
		}
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}

	sortNodes(f.Roots)
	reachable := 0
	f.Walk(func(n *Node) {
		sortNodes(n.Children)
		n.ChainProtected = len(n.Children) > 0
		reachable++
	})

	// Every node in a cycle has a known parent, so none of them is a
	// root and the walk never reaches them.
	if reachable != len(index) {
		return nil, srvErrors.NewMalformedInventoryError(vmID, "parent/child cycle detected")
	}

	return f, nil
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i].Snapshot, nodes[j].Snapshot
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
