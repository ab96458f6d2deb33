package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricsync/fabricsync/pkg/apply"
	"github.com/fabricsync/fabricsync/pkg/diff"
	"github.com/fabricsync/fabricsync/pkg/gate"
	"github.com/fabricsync/fabricsync/pkg/store"
	"github.com/fabricsync/fabricsync/pkg/types"
)

type fakeGate struct {
	result *gate.Result
	err    error
}

func (f *fakeGate) Ensure(ctx context.Context, req gate.Request) (*gate.Result, error) {
	return f.result, f.err
}

type fakeSource struct {
	snapshot *types.ConfigSnapshot
	pulls    int
}

func (f *fakeSource) PullSnapshot(ctx context.Context) (*types.ConfigSnapshot, error) {
	f.pulls++
	return f.snapshot, nil
}

type fakeApplier struct {
	applyCalls  int
	lastDryRun  bool
	failVerify  bool
	applyErrors int
}

func (f *fakeApplier) Apply(ctx context.Context, delta *types.DeltaSet, dryRun bool) (*apply.Summary, error) {
	f.applyCalls++
	f.lastDryRun = dryRun
	actionable := delta.Actionable()
	return &apply.Summary{
		DryRun:       dryRun,
		Attempted:    len(actionable),
		SuccessCount: len(actionable) - f.applyErrors,
		FailureCount: f.applyErrors,
	}, nil
}

func (f *fakeApplier) Verify(ctx context.Context, delta *types.DeltaSet) (*apply.VerificationReport, error) {
	total := len(delta.Actionable())
	verified := total
	if f.failVerify {
		verified = total - 1
	}
	return &apply.VerificationReport{
		TotalExpected: total,
		VerifiedCount: verified,
		FailedCount:   total - verified,
		SuccessRate:   float64(verified) / float64(total) * 100,
	}, nil
}

func passingGate(controller string) *fakeGate {
	return &fakeGate{result: &gate.Result{
		Success:    true,
		CanProceed: true,
		Controller: controller,
		Source:     gate.SourceDiscovery,
		Cache: &types.EndpointCache{
			Statistics: types.CacheStatistics{Valid: 8},
		},
	}}
}

func writeDesiredState(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desired.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func liveSnapshot(objects ...*types.ConfigObject) *fakeSource {
	return &fakeSource{snapshot: types.NewConfigSnapshot(types.SnapshotSourceLive, objects)}
}

func TestGateFailureAbortsBeforePull(t *testing.T) {
	gatekeeper := &fakeGate{
		result: &gate.Result{Success: false, Controller: "nsx01"},
		err:    errors.New("discovery failed: only 2 of 10 endpoints valid"),
	}
	source := liveSnapshot()
	r := New(gatekeeper, source, diff.NewEngine(nil), &fakeApplier{}, nil, nil)

	_, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": []}`),
		OutputDir:        t.TempDir(),
	})
	require.Error(t, err)
	assert.Zero(t, source.pulls)
}

func TestNoChangesNeeded(t *testing.T) {
	source := liveSnapshot(&types.ConfigObject{
		Path: "/infra/segments/web", ResourceType: "Segment",
		Attributes: map[string]interface{}{"vlan": float64(10)},
	})
	applier := &fakeApplier{}
	r := New(passingGate("nsx01"), source, diff.NewEngine(nil), applier, nil, nil)

	outputDir := t.TempDir()
	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": [{"path": "/infra/segments/web", "resource_type": "Segment", "vlan": 10}]}`),
		OutputDir:        outputDir,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoChanges, result.Outcome)
	assert.Zero(t, applier.applyCalls)
	assert.NotEmpty(t, result.OperationID)

	// baseline and delta artifacts written even when nothing changed
	assert.FileExists(t, result.Artifacts.Baseline)
	assert.FileExists(t, result.Artifacts.Delta)
}

func TestGatedDeletesOnlyIsCleanRun(t *testing.T) {
	// live object absent from the desired state, deletes disabled: the delta
	// reports the delete but nothing is actionable
	source := liveSnapshot(&types.ConfigObject{
		Path: "/infra/segments/old", ResourceType: "Segment",
	})
	applier := &fakeApplier{}
	r := New(passingGate("nsx01"), source, diff.NewEngine(nil), applier, nil, nil)

	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": []}`),
		OutputDir:        t.TempDir(),
		EnableDeletes:    false,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoChanges, result.Outcome)
	assert.Zero(t, applier.applyCalls)
	assert.Nil(t, result.Verify)
	assert.Equal(t, 1, result.Diff.DeleteCount)
	assert.FileExists(t, result.Artifacts.Delta)
}

func TestDryRunOutcome(t *testing.T) {
	source := liveSnapshot()
	applier := &fakeApplier{}
	r := New(passingGate("nsx01"), source, diff.NewEngine(nil), applier, nil, nil)

	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": [{"path": "/infra/segments/web", "resource_type": "Segment"}]}`),
		OutputDir:        t.TempDir(),
		DryRun:           true,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, result.Outcome)
	assert.Equal(t, 1, applier.applyCalls)
	assert.True(t, applier.lastDryRun)
}

func TestFullyVerifiedOutcomeAndHistory(t *testing.T) {
	core := store.NewMemoryStore()
	require.NoError(t, core.Open(""))
	history := NewHistoryRepo(core)

	source := liveSnapshot()
	r := New(passingGate("nsx01"), source, diff.NewEngine(nil), &fakeApplier{}, history, nil)

	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": [{"path": "/infra/segments/web", "resource_type": "Segment"}]}`),
		OutputDir:        t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFullyVerified, result.Outcome)
	assert.FileExists(t, result.Artifacts.VerificationReport)

	records, err := history.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.OperationID, records[0].OperationID)
	assert.Equal(t, OutcomeFullyVerified, records[0].Outcome)
}

func TestPartialIssuesOutcome(t *testing.T) {
	source := liveSnapshot()
	r := New(passingGate("nsx01"), source, diff.NewEngine(nil), &fakeApplier{failVerify: true}, nil, nil)

	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": [{"path": "/infra/a", "resource_type": "Segment"}, {"path": "/infra/b", "resource_type": "Segment"}]}`),
		OutputDir:        t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePartialIssues, result.Outcome)
}

func TestMalformedDesiredStateIsValidationError(t *testing.T) {
	r := New(passingGate("nsx01"), liveSnapshot(), diff.NewEngine(nil), &fakeApplier{}, nil, nil)

	_, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{not json`),
		OutputDir:        t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))
}

func TestDiffOnlySkipsApply(t *testing.T) {
	applier := &fakeApplier{}
	r := New(passingGate("nsx01"), liveSnapshot(), diff.NewEngine(nil), applier, nil, nil)

	result, err := r.Run(context.Background(), RunOptions{
		Controller:       "nsx01",
		DesiredStatePath: writeDesiredState(t, `{"objects": [{"path": "/infra/a", "resource_type": "Segment"}]}`),
		OutputDir:        t.TempDir(),
		DiffOnly:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeDryRun, result.Outcome)
	assert.Zero(t, applier.applyCalls)
	assert.FileExists(t, result.Artifacts.Delta)
}

func TestHistoryRecentOrderAndLimit(t *testing.T) {
	core := store.NewMemoryStore()
	require.NoError(t, core.Open(""))
	history := NewHistoryRepo(core)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.Append(&RunResult{
			OperationID: string(rune('a' + i)),
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
			Controller:  "nsx01",
			Outcome:     OutcomeNoChanges,
		}))
	}

	records, err := history.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].OperationID)
	assert.Equal(t, "b", records[1].OperationID)
}
