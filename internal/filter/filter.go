// Package filter evaluates operator criteria against the annotated
// snapshot forests. Evaluation is pure: the same forests and criteria
// always produce the same ordered result, and nothing is cached between
// calls. Fleet inventories stay in the low thousands of snapshots, so a
// full scan per evaluation is fine.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
)

// Entry pairs a virtual machine with its annotated snapshot forest.
type Entry struct {
	VM     models.VirtualMachine
	Forest *forest.Forest
}

// SnapshotView is one matching snapshot flattened for presentation,
// carrying the forest annotations alongside the raw record.
type SnapshotView struct {
	Hostname        string          `json:"hostname"`
	VMID            string          `json:"vmId"`
	VMName          string          `json:"vmName"`
	Snapshot        models.Snapshot `json:"snapshot"`
	Kind            forest.Kind     `json:"kind"`
	ChainProtected  bool            `json:"chainProtected"`
	AgeBusinessDays int             `json:"ageBusinessDays"`
	AgeCalendarDays int             `json:"ageCalendarDays"`
}

// Criteria is the operator-supplied predicate set. The zero value
// matches everything. Text fields match as case-insensitive substrings.
type Criteria struct {
	VMName       string `json:"vmName,omitempty"`
	SnapshotName string `json:"snapshotName,omitempty"`
	Description  string `json:"description,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Creator      string `json:"creator,omitempty"`

	CreatedAfter  time.Time `json:"createdAfter,omitempty"`
	CreatedBefore time.Time `json:"createdBefore,omitempty"`

	// MinAgeDays keeps snapshots whose age is >= the threshold, in the
	// unit AgeMode selects. Zero disables the check.
	MinAgeDays int            `json:"minAgeDays,omitempty"`
	AgeMode    forest.AgeMode `json:"ageMode,omitempty"`

	// Kinds restricts results to the listed chain positions. Empty
	// means any.
	Kinds []forest.Kind `json:"kinds,omitempty"`
}

// Evaluate walks every forest and returns the snapshots matching the
// criteria, ordered by hostname, VM name, VM id and then chain order
// within each VM.
func Evaluate(entries []Entry, criteria Criteria, now time.Time) []SnapshotView {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].VM, sorted[j].VM
		if a.Hostname != b.Hostname {
			return a.Hostname < b.Hostname
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	views := []SnapshotView{}
	for _, entry := range sorted {
		if entry.Forest == nil {
			continue
		}
		if criteria.Hostname != "" && !containsFold(entry.VM.Hostname, criteria.Hostname) {
			continue
		}
		if criteria.VMName != "" && !containsFold(entry.VM.Name, criteria.VMName) {
			continue
		}
		entry.Forest.Walk(func(node *forest.Node) {
			view := SnapshotView{
				Hostname:        entry.VM.Hostname,
				VMID:            entry.VM.ID,
				VMName:          entry.VM.Name,
				Snapshot:        node.Snapshot,
				Kind:            node.Kind(),
				ChainProtected:  node.ChainProtected,
				AgeBusinessDays: forest.BusinessDays(node.Snapshot.CreatedAt, now),
				AgeCalendarDays: forest.CalendarDays(node.Snapshot.CreatedAt, now),
			}
			if criteria.matches(view) {
				views = append(views, view)
			}
		})
	}
	return views
}

func (c Criteria) matches(view SnapshotView) bool {
	snap := view.Snapshot
	if c.SnapshotName != "" && !containsFold(snap.Name, c.SnapshotName) {
		return false
	}
	if c.Description != "" && !containsFold(snap.Description, c.Description) {
		return false
	}
	if c.Creator != "" && !containsFold(snap.CreatedBy, c.Creator) {
		return false
	}
	if !c.CreatedAfter.IsZero() && snap.CreatedAt.Before(c.CreatedAfter) {
		return false
	}
	if !c.CreatedBefore.IsZero() && snap.CreatedAt.After(c.CreatedBefore) {
		return false
	}
	if c.MinAgeDays > 0 {
		age := view.AgeCalendarDays
		if c.AgeMode == forest.AgeModeBusiness {
			age = view.AgeBusinessDays
		}
		if age < c.MinAgeDays {
			return false
		}
	}
	if len(c.Kinds) > 0 && !containsKind(c.Kinds, view.Kind) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsKind(kinds []forest.Kind, kind forest.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
