package models

import "time"

// VirtualMachine identifies a VM within one endpoint's inventory.
// ID is the endpoint's opaque inventory identifier (a managed object id
// on vSphere).
type VirtualMachine struct {
	ID        string
	SessionID SessionID
	Hostname  string
	Name      string
}

// Snapshot is one flat snapshot record as returned by an inventory query.
// ParentID is empty for roots; the tree shape is reconstructed from these
// records by the forest builder.
type Snapshot struct {
	ID          string
	VMID        string
	Name        string
	Description string
	CreatedAt   time.Time
	CreatedBy   string
	Memory      bool
	ParentID    string
}
