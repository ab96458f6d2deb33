package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/fabricsync/fabricsync/pkg/cli/format"
	"github.com/fabricsync/fabricsync/pkg/reconciler"
	"github.com/fabricsync/fabricsync/pkg/types"
)

// newTableRenderer returns the pterm table printer used by every command.
func newTableRenderer() *pterm.TablePrinter {
	headerStyle := pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	return pterm.DefaultTable.WithHasHeader(true).WithHeaderStyle(headerStyle)
}

// renderEndpointTable renders the probed endpoint catalog with per-path
// status and classification.
func renderEndpointTable(cache *types.EndpointCache) error {
	if len(cache.Endpoints.All) == 0 {
		fmt.Println("No endpoints probed")
		return nil
	}

	rows := [][]string{{"PATH", "CATEGORY", "STATUS", "ITEMS", "LATENCY", "CLASSIFICATION"}}
	for _, record := range cache.Endpoints.All {
		status := format.PTermStatusLabel("valid")
		items := fmt.Sprintf("%d", record.ItemCount)
		classification := format.ClassificationLabel(nil)
		if !record.Valid {
			status = format.PTermStatusLabel("failed")
			items = "-"
			classification = format.ClassificationLabel(record.Failure)
		}
		rows = append(rows, []string{
			record.Path,
			string(record.Category),
			status,
			items,
			formatLatency(record.ResponseTime),
			classification,
		})
	}
	return newTableRenderer().WithData(rows).Render()
}

// renderCacheSummary prints the cache metadata and aggregate statistics.
func renderCacheSummary(cache *types.EndpointCache) {
	fmt.Println()
	fmt.Println(format.Label("Controller", cache.Metadata.Hostname))
	fmt.Println(format.Label("Role", string(cache.Metadata.ManagerRole)))
	fmt.Println(format.Label("Validated", cache.Metadata.LastValidated.Format(time.RFC3339)))
	fmt.Println(format.Label("Expires", fmt.Sprintf("%s (%s remaining)",
		cache.Metadata.ExpiresAt.Format(time.RFC3339),
		formatLatency(cache.TTLRemaining(time.Now())))))
	fmt.Println(format.Label("Endpoints", fmt.Sprintf("%d total, %d valid, %d active, %d optimized",
		cache.Statistics.Total, cache.Statistics.Valid,
		cache.Statistics.Active, cache.Statistics.Optimized)))
	fmt.Println()
}

// renderDeltaTable renders the classified delta. Unchanged entries are
// omitted; the counts line carries them.
func renderDeltaTable(delta *types.DeltaSet) error {
	changes := make([]types.DeltaEntry, 0, delta.TotalChanges)
	for _, entry := range delta.Entries {
		if entry.Op != types.OpUnchanged {
			changes = append(changes, entry)
		}
	}

	if len(changes) == 0 {
		fmt.Println("No configuration drift detected")
		return nil
	}

	rows := [][]string{{"OP", "PATH", "RESOURCE TYPE", "ACTIONABLE"}}
	for _, entry := range changes {
		resourceType := ""
		if entry.Proposed != nil {
			resourceType = entry.Proposed.ResourceType
		} else if entry.Existing != nil {
			resourceType = entry.Existing.ResourceType
		}

		actionable := "yes"
		if entry.Op == types.OpDelete && !delta.DeletesEnabled {
			actionable = pterm.FgYellow.Sprint("no (deletes disabled)")
		}

		rows = append(rows, []string{
			format.OpLabel(entry.Op),
			entry.Path,
			resourceType,
			actionable,
		})
	}
	if err := newTableRenderer().WithData(rows).Render(); err != nil {
		return err
	}

	fmt.Printf("\n%d create, %d update, %d delete, %d unchanged\n",
		delta.CreateCount, delta.UpdateCount, delta.DeleteCount, delta.UnchangedCount)
	return nil
}

// renderHistoryTable renders past run records.
func renderHistoryTable(records []*reconciler.RunResult) error {
	if len(records) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	rows := [][]string{{"TIME", "CONTROLLER", "CHANGES", "OUTCOME", "OPERATION ID"}}
	for _, record := range records {
		changes := "-"
		if record.Diff != nil {
			changes = fmt.Sprintf("%d", record.Diff.TotalChanges)
		}
		rows = append(rows, []string{
			record.Timestamp.Local().Format("2006-01-02 15:04:05"),
			record.Controller,
			changes,
			outcomeLabel(record.Outcome),
			record.OperationID,
		})
	}
	return newTableRenderer().WithData(rows).Render()
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case reconciler.OutcomeFullyVerified, reconciler.OutcomeNoChanges:
		return pterm.FgGreen.Sprint(outcome)
	case reconciler.OutcomeDryRun:
		return pterm.FgYellow.Sprint(outcome)
	case reconciler.OutcomePartialIssues:
		return pterm.FgRed.Sprint(outcome)
	default:
		return outcome
	}
}

// formatLatency renders a duration compactly for table cells.
func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
