// Package reconciler orchestrates a full reconcile run: prerequisite gate,
// live pull, diff, apply, verification and the persisted run record.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fabricsync/fabricsync/pkg/apply"
	"github.com/fabricsync/fabricsync/pkg/diff"
	"github.com/fabricsync/fabricsync/pkg/gate"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// Outcome strings for a finished run.
const (
	OutcomeNoChanges     = "no changes needed"
	OutcomeDryRun        = "changes pending (dry-run)"
	OutcomeFullyVerified = "applied and fully verified"
	OutcomePartialIssues = "applied with partial issues"
)

// Gatekeeper validates controller prerequisites before any mutation.
type Gatekeeper interface {
	Ensure(ctx context.Context, req gate.Request) (*gate.Result, error)
}

// ConfigSource pulls the live configuration snapshot.
type ConfigSource interface {
	PullSnapshot(ctx context.Context) (*types.ConfigSnapshot, error)
}

// Applier mutates and verifies configuration objects.
type Applier interface {
	Apply(ctx context.Context, delta *types.DeltaSet, dryRun bool) (*apply.Summary, error)
	Verify(ctx context.Context, delta *types.DeltaSet) (*apply.VerificationReport, error)
}

// RunHistory persists finished run records.
type RunHistory interface {
	Append(result *RunResult) error
}

// RunOptions parameterizes one reconcile run.
type RunOptions struct {
	Controller        string
	DesiredStatePath  string
	DryRun            bool
	EnableDeletes     bool
	OutputDir         string
	AllowLimited      bool
	RequiredEndpoints []string
	// PriorGate lets a caller running repeatedly (the watch loop) reuse an
	// already validated gate result without new network calls.
	PriorGate *gate.Result
	// DiffOnly stops after writing the diff artifacts, skipping apply and
	// verification.
	DiffOnly bool
}

// GateSummary is the persisted slice of the gate result.
type GateSummary struct {
	Source               string   `json:"source"`
	ValidEndpoints       int      `json:"valid_endpoints"`
	LimitedFunctionality bool     `json:"limited_functionality,omitempty"`
	MissingEndpoints     []string `json:"missing_endpoints,omitempty"`
}

// RunResult is the aggregate record of one reconcile run.
type RunResult struct {
	OperationID string                    `json:"operation_id"`
	Timestamp   time.Time                 `json:"timestamp"`
	Controller  string                    `json:"controller"`
	DryRun      bool                      `json:"dry_run"`
	Gate        GateSummary               `json:"gate"`
	Diff        *types.DeltaSet           `json:"diff,omitempty"`
	Apply       *apply.Summary            `json:"apply,omitempty"`
	Verify      *apply.VerificationReport `json:"verify,omitempty"`
	Artifacts   Artifacts                 `json:"artifacts"`
	Outcome     string                    `json:"outcome"`

	// GateResult carries the full gate verdict for in-process reuse. It is
	// not part of the persisted record.
	GateResult *gate.Result `json:"-"`
}

// Reconciler wires the run phases together. All dependencies are injected.
type Reconciler struct {
	gate    Gatekeeper
	source  ConfigSource
	differ  *diff.Engine
	applier Applier
	history RunHistory
	logger  log.Logger
}

// New creates a reconciler. History may be nil when run records should not be
// persisted.
func New(gatekeeper Gatekeeper, source ConfigSource, differ *diff.Engine, applier Applier, history RunHistory, logger log.Logger) *Reconciler {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Reconciler{
		gate:    gatekeeper,
		source:  source,
		differ:  differ,
		applier: applier,
		history: history,
		logger:  logger.WithComponent("reconciler"),
	}
}

// Run executes one reconcile pass. The gate runs before anything else and a
// failed gate aborts before a single mutating call. Committed mutations are
// never rolled back; partial verification is surfaced in the outcome.
func (r *Reconciler) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{
		OperationID: uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Controller:  opts.Controller,
		DryRun:      opts.DryRun,
	}
	r.logger.Info("Reconcile run starting",
		log.Str("operation_id", result.OperationID),
		log.Str("controller", opts.Controller),
		log.Bool("dry_run", opts.DryRun))

	gateResult, err := r.gate.Ensure(ctx, gate.Request{
		Controller:        opts.Controller,
		RequiredEndpoints: opts.RequiredEndpoints,
		AllowLimited:      opts.AllowLimited,
		Prior:             opts.PriorGate,
	})
	if gateResult != nil {
		result.GateResult = gateResult
		result.Gate = GateSummary{
			Source:               gateResult.Source,
			LimitedFunctionality: gateResult.LimitedFunctionality,
			MissingEndpoints:     gateResult.MissingEndpoints,
		}
		if gateResult.Cache != nil {
			result.Gate.ValidEndpoints = gateResult.Cache.Statistics.Valid
		}
	}
	if err != nil {
		return result, err
	}
	if !gateResult.CanProceed {
		return result, types.NewValidationError("prerequisite gate failed: required endpoints unavailable")
	}

	live, err := r.source.PullSnapshot(ctx)
	if err != nil {
		return result, err
	}
	r.logger.Info("Live snapshot pulled", log.Int("objects", live.ObjectCount))

	desired, err := types.ParseSnapshotFile(opts.DesiredStatePath)
	if err != nil {
		return result, err
	}

	delta, baseline, err := r.differ.Diff(live, desired, diff.Options{EnableDeletes: opts.EnableDeletes})
	if err != nil {
		return result, err
	}
	result.Diff = delta

	artifacts, err := WriteDiffArtifacts(opts.OutputDir, result.OperationID, baseline, delta)
	if err != nil {
		return result, err
	}
	result.Artifacts = artifacts

	// Gated deletes can leave drift with nothing actionable; that is a clean
	// run, the reported deletes live in the delta artifact.
	if len(delta.Actionable()) == 0 {
		result.Outcome = OutcomeNoChanges
		return r.finish(result)
	}
	if opts.DiffOnly || opts.DryRun {
		if opts.DryRun {
			summary, err := r.applier.Apply(ctx, delta, true)
			if err != nil {
				return result, err
			}
			result.Apply = summary
		}
		result.Outcome = OutcomeDryRun
		return r.finish(result)
	}

	summary, err := r.applier.Apply(ctx, delta, false)
	result.Apply = summary
	if err != nil {
		return result, err
	}

	report, err := r.applier.Verify(ctx, delta)
	result.Verify = report
	if err != nil {
		return result, err
	}

	if path, werr := WriteVerificationReport(opts.OutputDir, result.OperationID, report); werr != nil {
		r.logger.Warn("Failed to write verification report", log.Err(werr))
	} else {
		result.Artifacts.VerificationReport = path
	}

	if summary.FailureCount == 0 && report.FullyVerified() {
		result.Outcome = OutcomeFullyVerified
	} else {
		result.Outcome = OutcomePartialIssues
	}
	return r.finish(result)
}

// finish appends the run record to history. A history write failure is
// logged, never fatal: the run itself already completed.
func (r *Reconciler) finish(result *RunResult) (*RunResult, error) {
	r.logger.Info("Reconcile run finished",
		log.Str("operation_id", result.OperationID),
		log.Str("outcome", result.Outcome))

	if r.history != nil {
		if err := r.history.Append(result); err != nil {
			r.logger.Warn("Failed to record run history", log.Err(err))
		}
	}
	return result, nil
}
