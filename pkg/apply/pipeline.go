// Package apply executes and verifies a configuration delta against a
// controller.
package apply

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fabricsync/fabricsync/pkg/api/client"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// DefaultConcurrency bounds parallel mutations within one depth level.
const DefaultConcurrency = 4

// ObjectClient is the controller surface the pipeline mutates through.
type ObjectClient interface {
	GetObject(ctx context.Context, path string) (*types.ConfigObject, error)
	CreateObject(ctx context.Context, obj *types.ConfigObject) error
	UpdateObject(ctx context.Context, obj *types.ConfigObject) error
	DeleteObject(ctx context.Context, path string) error
}

// Summary aggregates one apply phase.
type Summary struct {
	DryRun       bool                    `json:"dry_run"`
	Attempted    int                     `json:"attempted"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	Results      []types.OperationResult `json:"results"`
	Errors       []string                `json:"errors,omitempty"`
}

// Pipeline applies actionable delta entries and verifies the outcome.
type Pipeline struct {
	api         ObjectClient
	concurrency int
	logger      log.Logger
}

// NewPipeline creates a pipeline over a controller client. Concurrency below
// one falls back to the default.
func NewPipeline(api ObjectClient, concurrency int, logger log.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Pipeline{api: api, concurrency: concurrency, logger: logger.WithComponent("apply")}
}

// Apply executes the actionable entries of a delta. Creates and updates run
// before deletes; within each group entries are batched by path depth so a
// parent is always committed before its children (and children removed
// before their parent). One object's failure never aborts the batch.
//
// In dry-run mode no mutating call is issued; the summary reports every
// actionable entry as an intended change.
func (p *Pipeline) Apply(ctx context.Context, delta *types.DeltaSet, dryRun bool) (*Summary, error) {
	actionable := delta.Actionable()
	summary := &Summary{DryRun: dryRun, Attempted: len(actionable)}

	if dryRun {
		for _, entry := range actionable {
			summary.Results = append(summary.Results, types.OperationResult{
				Path: entry.Path, Op: entry.Op, Success: true, Detail: "dry-run",
			})
		}
		summary.SuccessCount = len(summary.Results)
		p.logger.Info("Dry run, no changes applied", log.Int("pending", summary.Attempted))
		return summary, nil
	}

	var changes, deletes []types.DeltaEntry
	for _, entry := range actionable {
		if entry.Op == types.OpDelete {
			deletes = append(deletes, entry)
		} else {
			changes = append(changes, entry)
		}
	}

	var mu sync.Mutex
	record := func(result types.OperationResult) {
		mu.Lock()
		defer mu.Unlock()
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s: %s", result.Op, result.Path, result.Error))
		}
	}

	for _, level := range levelize(changes, false) {
		if err := p.runLevel(ctx, level, record); err != nil {
			return summary, err
		}
	}
	for _, level := range levelize(deletes, true) {
		if err := p.runLevel(ctx, level, record); err != nil {
			return summary, err
		}
	}

	sort.SliceStable(summary.Results, func(i, j int) bool {
		return summary.Results[i].Path < summary.Results[j].Path
	})

	p.logger.Info("Apply phase finished",
		log.Int("succeeded", summary.SuccessCount),
		log.Int("failed", summary.FailureCount))
	return summary, nil
}

// runLevel mutates the entries of one depth level with bounded concurrency.
// Only context cancellation stops the batch early.
func (p *Pipeline) runLevel(ctx context.Context, level []types.DeltaEntry, record func(types.OperationResult)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, entry := range level {
		entry := entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := types.OperationResult{Path: entry.Path, Op: entry.Op}
			if err := p.mutate(gctx, entry); err != nil {
				result.Error = err.Error()
				p.logger.Error("Mutation failed",
					log.Str("op", string(entry.Op)), log.Str("path", entry.Path), log.Err(err))
			} else {
				result.Success = true
				p.logger.Debug("Mutation applied",
					log.Str("op", string(entry.Op)), log.Str("path", entry.Path))
			}
			record(result)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) mutate(ctx context.Context, entry types.DeltaEntry) error {
	switch entry.Op {
	case types.OpCreate:
		return p.api.CreateObject(ctx, entry.Proposed)
	case types.OpUpdate:
		return p.api.UpdateObject(ctx, entry.Proposed)
	case types.OpDelete:
		return p.api.DeleteObject(ctx, entry.Path)
	default:
		return fmt.Errorf("operation %q is not applicable", entry.Op)
	}
}

// levelize groups entries by path depth. Ascending order commits parents
// before children; descending (for deletes) removes children first.
func levelize(entries []types.DeltaEntry, descending bool) [][]types.DeltaEntry {
	byDepth := make(map[int][]types.DeltaEntry)
	depths := make([]int, 0)
	for _, entry := range entries {
		depth := types.PathDepth(entry.Path)
		if _, seen := byDepth[depth]; !seen {
			depths = append(depths, depth)
		}
		byDepth[depth] = append(byDepth[depth], entry)
	}

	sort.Ints(depths)
	if descending {
		for i, j := 0, len(depths)-1; i < j; i, j = i+1, j-1 {
			depths[i], depths[j] = depths[j], depths[i]
		}
	}

	levels := make([][]types.DeltaEntry, 0, len(depths))
	for _, depth := range depths {
		levels = append(levels, byDepth[depth])
	}
	return levels
}

// isNotFound unwraps the client's missing-object sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, client.ErrNotFound)
}
