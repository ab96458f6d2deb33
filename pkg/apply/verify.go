package apply

import (
	"context"
	"fmt"
	"math"

	"github.com/fabricsync/fabricsync/pkg/diff"
	"github.com/fabricsync/fabricsync/pkg/log"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// VerificationReport is the outcome of re-reading every targeted object.
type VerificationReport struct {
	VerifiedCount int                     `json:"verified_count"`
	FailedCount   int                     `json:"failed_count"`
	TotalExpected int                     `json:"total_expected"`
	SuccessRate   float64                 `json:"success_rate"`
	Results       []types.OperationResult `json:"results"`
}

// FullyVerified reports whether every expected change was confirmed.
func (r *VerificationReport) FullyVerified() bool {
	return r.TotalExpected > 0 && r.VerifiedCount == r.TotalExpected
}

// Verify re-reads every actionable entry of the delta: creates and updates
// must match the proposed state under the diff comparison, deletes must be
// absent. The success rate is verified over expected as a percentage with
// two decimals.
func (p *Pipeline) Verify(ctx context.Context, delta *types.DeltaSet) (*VerificationReport, error) {
	actionable := delta.Actionable()
	report := &VerificationReport{TotalExpected: len(actionable)}

	for _, entry := range actionable {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := types.OperationResult{Path: entry.Path, Op: entry.Op}
		if err := p.verifyEntry(ctx, entry); err != nil {
			result.Error = err.Error()
			report.FailedCount++
			p.logger.Warn("Verification failed",
				log.Str("op", string(entry.Op)), log.Str("path", entry.Path), log.Err(err))
		} else {
			result.Success = true
			result.Verified = true
			report.VerifiedCount++
		}
		report.Results = append(report.Results, result)
	}

	if report.TotalExpected > 0 {
		rate := float64(report.VerifiedCount) / float64(report.TotalExpected) * 100
		report.SuccessRate = math.Round(rate*100) / 100
	}

	p.logger.Info("Verification finished",
		log.Int("verified", report.VerifiedCount),
		log.Int("failed", report.FailedCount),
		log.Float64("success_rate", report.SuccessRate))
	return report, nil
}

func (p *Pipeline) verifyEntry(ctx context.Context, entry types.DeltaEntry) error {
	current, err := p.api.GetObject(ctx, entry.Path)

	if entry.Op == types.OpDelete {
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("object still present after delete")
	}

	if err != nil {
		return err
	}
	if !diff.ObjectsEqual(current, entry.Proposed) {
		return fmt.Errorf("object state does not match proposed configuration")
	}
	return nil
}
