package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fabricsync/fabricsync/pkg/reconciler"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past reconcile runs",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	records, err := reconciler.NewHistoryRepo(application.store).Recent(historyLimit)
	if err != nil {
		return err
	}
	return renderHistoryTable(records)
}
