// Package diff classifies the difference between a live configuration
// snapshot and a desired-state document.
package diff

import (
	"sort"

	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// Options controls diff behavior.
type Options struct {
	// EnableDeletes makes delete entries actionable. They are reported
	// either way.
	EnableDeletes bool
}

// Engine computes delta sets between configuration snapshots.
type Engine struct {
	logger log.Logger
}

// NewEngine creates a diff engine.
func NewEngine(logger log.Logger) *Engine {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Engine{logger: logger.WithComponent("diff")}
}

// Diff filters controller-managed children out of both snapshots, classifies
// every path in the union and returns the delta together with the filtered
// live baseline, which callers persist as the pre-change artifact.
func (e *Engine) Diff(live, proposed *types.ConfigSnapshot, opts Options) (*types.DeltaSet, *types.ConfigSnapshot, error) {
	filteredLive, excludedLive := filterManagedChildren(live)
	filteredProposed, excludedProposed := filterManagedChildren(proposed)

	delta := &types.DeltaSet{
		Filtering:      types.FilteringStats{SystemOwnedExcluded: excludedLive + excludedProposed},
		DeletesEnabled: opts.EnableDeletes,
	}

	liveIndex := filteredLive.Index()
	proposedIndex := filteredProposed.Index()

	for path, existing := range liveIndex {
		proposedObj, ok := proposedIndex[path]
		switch {
		case !ok:
			delta.Entries = append(delta.Entries, types.DeltaEntry{
				Op: types.OpDelete, Path: path, Existing: existing,
			})
		case ObjectsEqual(existing, proposedObj):
			delta.Entries = append(delta.Entries, types.DeltaEntry{
				Op: types.OpUnchanged, Path: path, Existing: existing, Proposed: proposedObj,
			})
		default:
			delta.Entries = append(delta.Entries, types.DeltaEntry{
				Op: types.OpUpdate, Path: path, Existing: existing, Proposed: proposedObj,
			})
		}
	}
	for path, proposedObj := range proposedIndex {
		if _, ok := liveIndex[path]; !ok {
			delta.Entries = append(delta.Entries, types.DeltaEntry{
				Op: types.OpCreate, Path: path, Proposed: proposedObj,
			})
		}
	}

	delta.Sort()
	delta.Recount()

	e.logger.Info("Configuration diff computed",
		log.Int("creates", delta.CreateCount),
		log.Int("updates", delta.UpdateCount),
		log.Int("deletes", delta.DeleteCount),
		log.Int("unchanged", delta.UnchangedCount),
		log.Int("filtered_system_owned", delta.Filtering.SystemOwnedExcluded),
		log.Bool("deletes_enabled", opts.EnableDeletes))

	return delta, filteredLive, nil
}

// ObjectsEqual compares two objects at the same path. Children are classified
// through their own paths, so only the object's own type and attributes
// matter. The verification phase reuses this comparison when re-reading
// applied objects.
func ObjectsEqual(existing, proposed *types.ConfigObject) bool {
	if existing.ResourceType != proposed.ResourceType {
		return false
	}
	return attributesEqual(existing.Attributes, proposed.Attributes)
}

// filterManagedChildren returns a copy of the snapshot with every
// controller-managed child pruned, and the number of objects removed. The
// input snapshot is never mutated.
func filterManagedChildren(snap *types.ConfigSnapshot) (*types.ConfigSnapshot, int) {
	excluded := 0

	var prune func(objs []*types.ConfigObject) []*types.ConfigObject
	prune = func(objs []*types.ConfigObject) []*types.ConfigObject {
		kept := make([]*types.ConfigObject, 0, len(objs))
		for _, obj := range objs {
			if obj.IsManagedChild() {
				excluded += 1 + countObjects(obj.Children)
				continue
			}
			clone := *obj
			clone.Children = prune(obj.Children)
			kept = append(kept, &clone)
		}
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })
		return kept
	}

	filtered := &types.ConfigSnapshot{
		Source:     snap.Source,
		CapturedAt: snap.CapturedAt,
		Objects:    prune(snap.Objects),
	}
	filtered.ObjectCount = len(filtered.Index())
	return filtered, excluded
}

func countObjects(objs []*types.ConfigObject) int {
	total := len(objs)
	for _, obj := range objs {
		total += countObjects(obj.Children)
	}
	return total
}
