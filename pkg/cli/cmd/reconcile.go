package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/reconciler"
	"github.com/fabricsync/fabricsync/pkg/types"
)

var (
	// Reconcile command flags
	reconcileConn    controllerFlags
	desiredStateFile string
	reconcileDryRun  bool
	enableDeletes    bool
	outputDir        string
	allowLimited     bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a controller with a desired-state file",
	Long: `Reconcile the live configuration of a controller with a desired-state
document. For example:
  fabricsync reconcile --controller nsx01.example.com --desired-state desired.yaml
  fabricsync reconcile --controller nsx01.example.com --desired-state desired.json --dry-run
  fabricsync reconcile --controller nsx01.example.com --desired-state desired.yaml --enable-deletes`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileConn.register(reconcileCmd)
	reconcileCmd.Flags().StringVar(&desiredStateFile, "desired-state", "", "Desired-state file, JSON or YAML (required)")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Compute and report changes without applying them")
	reconcileCmd.Flags().BoolVar(&enableDeletes, "enable-deletes", false, "Allow delete operations for objects absent from the desired state")
	reconcileCmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for baseline, delta and verification artifacts")
	reconcileCmd.Flags().BoolVar(&allowLimited, "allow-limited", false, "Proceed with limited functionality when required endpoints are missing")
	reconcileCmd.MarkFlagRequired("desired-state")
}

// runReconcile is the main entry point for the reconcile command
func runReconcile(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	if _, err := os.Stat(desiredStateFile); err != nil {
		return types.NewValidationError(fmt.Sprintf("desired-state file %s not found", desiredStateFile))
	}

	printReconcileBanner()

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sess, err := application.openSession(&reconcileConn)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	role := sess.discoverer.DetectRole(ctx)
	rec, _ := application.newReconciler(sess, role)

	result, err := rec.Run(ctx, reconciler.RunOptions{
		Controller:       reconcileConn.controller,
		DesiredStatePath: desiredStateFile,
		DryRun:           reconcileDryRun,
		EnableDeletes:    enableDeletes,
		OutputDir:        resolveOutputDir(),
		AllowLimited:     allowLimited,
	})
	if err != nil {
		return err
	}

	printRunSummary(result, startTime)

	// Partial verification is surfaced, never swallowed
	if result.Outcome == reconciler.OutcomePartialIssues {
		if result.Verify != nil {
			return &types.VerificationError{
				Expected: result.Verify.TotalExpected,
				Verified: result.Verify.VerifiedCount,
			}
		}
		return fmt.Errorf("reconcile finished with partial issues")
	}
	return nil
}

// printReconcileBanner prints the initial banner for the reconcile command
func printReconcileBanner() {
	if reconcileDryRun {
		fmt.Println("\n🔄 FabricSync Reconcile Initiated (Dry Run)")
	} else {
		fmt.Println("\n🔄 FabricSync Reconcile Initiated")
	}

	fmt.Println("\n- Controller:", format.Highlight(reconcileConn.controller))
	fmt.Println("- Desired state:", format.Highlight(desiredStateFile))
	if enableDeletes {
		fmt.Println("- Deletes:", format.Warning("enabled"))
	} else {
		fmt.Println("- Deletes:", format.Dim("disabled (reported only)"))
	}
	fmt.Println()
}

// printRunSummary prints the phase-by-phase outcome of a finished run.
func printRunSummary(result *reconciler.RunResult, startTime time.Time) {
	fmt.Println()
	fmt.Printf("🔐 Gate passed via %s", format.Highlight(result.Gate.Source))
	if result.Gate.LimitedFunctionality {
		fmt.Printf(" %s", format.Warning("(limited functionality, %d endpoints missing)", len(result.Gate.MissingEndpoints)))
	}
	fmt.Println()

	if result.Diff != nil {
		fmt.Printf("🧮 Diff: %s create, %s update, %s delete, %d unchanged",
			format.Success("%d", result.Diff.CreateCount),
			format.Warning("%d", result.Diff.UpdateCount),
			format.Error("%d", result.Diff.DeleteCount),
			result.Diff.UnchangedCount)
		if result.Diff.Filtering.SystemOwnedExcluded > 0 {
			fmt.Printf(" (%d system-owned objects excluded)", result.Diff.Filtering.SystemOwnedExcluded)
		}
		fmt.Println()
	}

	if result.Apply != nil && !result.Apply.DryRun {
		fmt.Printf("📡 Apply: %d succeeded, %d failed\n", result.Apply.SuccessCount, result.Apply.FailureCount)
	}
	if result.Verify != nil {
		fmt.Printf("🔎 Verify: %d/%d confirmed (%.2f%%)\n",
			result.Verify.VerifiedCount, result.Verify.TotalExpected, result.Verify.SuccessRate)
	}

	if result.Artifacts.Delta != "" {
		fmt.Println()
		fmt.Println("📦 Artifacts:")
		fmt.Printf("- Baseline: %s\n", result.Artifacts.Baseline)
		fmt.Printf("- Delta:    %s\n", result.Artifacts.Delta)
		if result.Artifacts.VerificationReport != "" {
			fmt.Printf("- Report:   %s\n", result.Artifacts.VerificationReport)
		}
	}

	elapsed := time.Since(startTime).Seconds()
	fmt.Println()
	switch result.Outcome {
	case reconciler.OutcomePartialIssues:
		fmt.Printf("⚠️  %s in %.1fs\n", result.Outcome, elapsed)
	case reconciler.OutcomeNoChanges, reconciler.OutcomeDryRun:
		fmt.Printf("💬 %s (%.1fs)\n", result.Outcome, elapsed)
	default:
		fmt.Printf("🎉 %s in %.1fs\n", result.Outcome, elapsed)
	}
}

// resolveOutputDir picks the artifact directory: flag, then config default.
func resolveOutputDir() string {
	if outputDir != "" {
		return outputDir
	}
	return cfg.OutputDir
}
