package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/gate"
	"github.com/fabricsync/fabricsync/pkg/reconciler"
	"github.com/fabricsync/fabricsync/pkg/types"
)

var (
	// Watch command flags
	watchConn         controllerFlags
	watchDesiredState string
	watchInterval     time.Duration
	watchSchedule     string
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a controller for configuration drift",
	Long: `Run the drift check repeatedly in the foreground: pull the live
configuration, diff it against the desired state and report drift. Watch
never applies changes. Stop with Ctrl-C. For example:
  fabricsync watch --controller nsx01.example.com --desired-state desired.yaml --interval 5m
  fabricsync watch --controller nsx01.example.com --desired-state desired.yaml --schedule "0 * * * *"`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchConn.register(watchCmd)
	watchCmd.Flags().StringVar(&watchDesiredState, "desired-state", "", "Desired-state file, JSON or YAML (required)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "Time between drift checks")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "Cron expression for drift checks (overrides --interval)")
	watchCmd.MarkFlagRequired("desired-state")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(watchDesiredState); err != nil {
		return types.NewValidationError(fmt.Sprintf("desired-state file %s not found", watchDesiredState))
	}

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sess, err := application.openSession(&watchConn)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	role := sess.discoverer.DetectRole(ctx)
	rec, _ := application.newReconciler(sess, role)

	fmt.Printf("\n👁  Watching %s for drift against %s\n\n",
		format.Highlight(watchConn.controller), format.Highlight(watchDesiredState))

	// the first tick validates the gate; subsequent ticks reuse its result.
	// nonOverlapping keeps prior single-writer: the cron scheduler starts each
	// invocation in its own goroutine.
	var prior *gate.Result
	tick := nonOverlapping(func() {
		result, err := rec.Run(ctx, reconciler.RunOptions{
			Controller:       watchConn.controller,
			DesiredStatePath: watchDesiredState,
			OutputDir:        cfg.OutputDir,
			PriorGate:        prior,
			DiffOnly:         true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), format.Error("check failed: %v", err))
			prior = nil
			return
		}
		prior = result.GateResult

		stamp := time.Now().Format("15:04:05")
		if result.Diff.TotalChanges == 0 {
			fmt.Printf("[%s] %s\n", stamp, format.Success("in sync (%d objects)", result.Diff.UnchangedCount))
			return
		}
		fmt.Printf("[%s] %s\n", stamp, format.Warning("drift detected: %d changes", result.Diff.TotalChanges))
		renderDeltaTable(result.Diff)
	})

	tick()
	if ctx.Err() != nil {
		return nil
	}

	if watchSchedule != "" {
		return watchWithCron(ctx, tick)
	}
	return watchWithTicker(ctx, tick)
}

// nonOverlapping serializes tick invocations: a tick that outlasts its
// interval makes the next invocation a no-op instead of a concurrent run.
func nonOverlapping(tick func()) func() {
	var mu sync.Mutex
	return func() {
		if !mu.TryLock() {
			return
		}
		defer mu.Unlock()
		tick()
	}
}

func watchWithTicker(ctx context.Context, tick func()) error {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nWatch stopped")
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

func watchWithCron(ctx context.Context, tick func()) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(watchSchedule, tick); err != nil {
		return types.NewValidationError(fmt.Sprintf("invalid cron schedule %q: %v", watchSchedule, err))
	}

	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	fmt.Println("\nWatch stopped")
	return nil
}
