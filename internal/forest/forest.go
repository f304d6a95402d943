package forest

import (
	"github.com/vmops/snapfleet/internal/models"
)

// Kind classifies a node's position in its tree. The names follow what
// operators see: a middle-of-chain snapshot both has children and is
// one, and neither it nor a branch point may be deleted without manual
// consolidation.
type Kind string

const (
	KindIndependent Kind = "independent"
	KindChild       Kind = "child"
	KindMiddle      Kind = "middle-of-chain"
	KindHasChildren Kind = "has-children"
)

// Node is one snapshot in the reconstructed ancestry tree.
type Node struct {
	Snapshot models.Snapshot
	Parent   *Node
	Children []*Node

	// ChainProtected is true iff the node has at least one child.
	// Deleting it would require disk consolidation of descendants,
	// which is disallowed by policy.
	ChainProtected bool
}

func (n *Node) Kind() Kind {
	hasChildren := len(n.Children) > 0
	isChild := n.Parent != nil
	switch {
	case hasChildren && isChild:
		return KindMiddle
	case hasChildren:
		return KindHasChildren
	case isChild:
		return KindChild
	default:
		return KindIndependent
	}
}

// Forest is the snapshot ancestry forest of one VM, annotated with
// chain protection. It is rebuilt wholesale after every mutating
// operation and never patched in place.
type Forest struct {
	VMID  string
	Roots []*Node

	index map[string]*Node
}

// Node looks up a node by snapshot id.
func (f *Forest) Node(id string) (*Node, bool) {
	n, ok := f.index[id]
	return n, ok
}

// Len returns the number of snapshots in the forest.
func (f *Forest) Len() int {
	return len(f.index)
}

// Walk visits every node in deterministic order: roots in order, each
// subtree depth-first with children in order.
func (f *Forest) Walk(fn func(*Node)) {
	var visit func(*Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range f.Roots {
		visit(r)
	}
}
