package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/reconciler"
	"github.com/fabricsync/fabricsync/pkg/types"
)

var (
	// Diff command flags
	diffConn          controllerFlags
	diffDesiredState  string
	diffOutputDir     string
	diffEnableDeletes bool
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show drift between a controller and a desired-state file",
	Long: `Compute and display the classified difference between a controller's
live configuration and a desired-state document without applying anything.
For example:
  fabricsync diff --controller nsx01.example.com --desired-state desired.yaml`,
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffConn.register(diffCmd)
	diffCmd.Flags().StringVar(&diffDesiredState, "desired-state", "", "Desired-state file, JSON or YAML (required)")
	diffCmd.Flags().StringVar(&diffOutputDir, "output-dir", "", "Directory for baseline and delta artifacts")
	diffCmd.Flags().BoolVar(&diffEnableDeletes, "enable-deletes", false, "Mark delete entries as actionable in the delta document")
	diffCmd.MarkFlagRequired("desired-state")
}

func runDiff(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(diffDesiredState); err != nil {
		return types.NewValidationError(fmt.Sprintf("desired-state file %s not found", diffDesiredState))
	}

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sess, err := application.openSession(&diffConn)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	role := sess.discoverer.DetectRole(ctx)
	rec, _ := application.newReconciler(sess, role)

	dir := diffOutputDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	result, err := rec.Run(ctx, reconciler.RunOptions{
		Controller:       diffConn.controller,
		DesiredStatePath: diffDesiredState,
		EnableDeletes:    diffEnableDeletes,
		OutputDir:        dir,
		DiffOnly:         true,
	})
	if err != nil {
		return err
	}

	if err := renderDeltaTable(result.Diff); err != nil {
		return err
	}
	fmt.Printf("\nArtifacts: %s, %s\n", result.Artifacts.Baseline, result.Artifacts.Delta)
	return nil
}
