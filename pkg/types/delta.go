package types

import "sort"

// DeltaOp classifies one difference between live and desired configuration.
type DeltaOp string

const (
	OpCreate    DeltaOp = "create"
	OpUpdate    DeltaOp = "update"
	OpDelete    DeltaOp = "delete"
	OpUnchanged DeltaOp = "unchanged"
)

// DeltaEntry records the classification of a single path. Exactly one
// operation applies, determined solely by presence and equality of the
// existing and proposed objects.
type DeltaEntry struct {
	Op       DeltaOp       `json:"op"`
	Path     string        `json:"path"`
	Existing *ConfigObject `json:"existing,omitempty"`
	Proposed *ConfigObject `json:"proposed,omitempty"`
}

// FilteringStats counts controller-managed children excluded before diffing.
type FilteringStats struct {
	SystemOwnedExcluded int `json:"system_owned_excluded"`
}

// DeltaSet is the classified difference between two snapshots.
type DeltaSet struct {
	Entries []DeltaEntry `json:"entries"`

	CreateCount    int `json:"create_count"`
	UpdateCount    int `json:"update_count"`
	DeleteCount    int `json:"delete_count"`
	UnchangedCount int `json:"unchanged_count"`
	TotalChanges   int `json:"total_changes"`

	Filtering FilteringStats `json:"filtering"`

	// DeletesEnabled records whether delete entries are actionable. Disabled
	// deletes are still reported for visibility.
	DeletesEnabled bool `json:"deletes_enabled"`
}

// opRank orders entries deterministically: creates, updates, deletes, then
// unchanged, path-ascending within each operation.
func opRank(op DeltaOp) int {
	switch op {
	case OpCreate:
		return 0
	case OpUpdate:
		return 1
	case OpDelete:
		return 2
	default:
		return 3
	}
}

// Sort orders the entries so identical inputs always reproduce an identical
// delta document.
func (d *DeltaSet) Sort() {
	sort.SliceStable(d.Entries, func(i, j int) bool {
		ri, rj := opRank(d.Entries[i].Op), opRank(d.Entries[j].Op)
		if ri != rj {
			return ri < rj
		}
		return d.Entries[i].Path < d.Entries[j].Path
	})
}

// Recount recomputes the aggregate counters from the entries.
func (d *DeltaSet) Recount() {
	d.CreateCount, d.UpdateCount, d.DeleteCount, d.UnchangedCount = 0, 0, 0, 0
	for _, entry := range d.Entries {
		switch entry.Op {
		case OpCreate:
			d.CreateCount++
		case OpUpdate:
			d.UpdateCount++
		case OpDelete:
			d.DeleteCount++
		case OpUnchanged:
			d.UnchangedCount++
		}
	}
	d.TotalChanges = d.CreateCount + d.UpdateCount + d.DeleteCount
}

// Actionable returns the entries the apply phase may act on: unchanged
// entries are never actionable, delete entries only when deletes are enabled.
func (d *DeltaSet) Actionable() []DeltaEntry {
	actionable := make([]DeltaEntry, 0, len(d.Entries))
	for _, entry := range d.Entries {
		switch entry.Op {
		case OpUnchanged:
			continue
		case OpDelete:
			if !d.DeletesEnabled {
				continue
			}
		}
		actionable = append(actionable, entry)
	}
	return actionable
}
