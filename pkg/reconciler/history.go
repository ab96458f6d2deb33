package reconciler

import (
	"fmt"
	"sort"

	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/store/repos"
)

// HistoryRepo persists run records in the store's history bucket, keyed so a
// plain key scan returns them in chronological order.
type HistoryRepo struct {
	repo *repos.BaseRepo[RunResult]
}

// NewHistoryRepo creates a history repository over the core store.
func NewHistoryRepo(core store.Store) *HistoryRepo {
	return &HistoryRepo{repo: repos.NewBaseRepo[RunResult](core, store.BucketHistory)}
}

// Append stores one finished run record.
func (h *HistoryRepo) Append(result *RunResult) error {
	key := fmt.Sprintf("%s_%s", result.Timestamp.UTC().Format("20060102T150405.000000000Z"), result.OperationID)
	return h.repo.Put(key, result)
}

// Recent returns up to limit run records, newest first. Limit zero or
// negative means all records.
func (h *HistoryRepo) Recent(limit int) ([]*RunResult, error) {
	records, err := h.repo.List()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
