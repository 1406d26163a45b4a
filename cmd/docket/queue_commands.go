package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"docket/internal/submission"
	"docket/internal/workflow"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and repair the shared review queue",
	}

	queueCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Summarize queue, archive, and ticket state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				health, err := mgr.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Queue: %s\n", health.Queue.Dir)
				rows := [][]string{}
				for _, status := range submission.AllStatuses() {
					if n := health.Queue.ByStatus[status]; n > 0 {
						rows = append(rows, []string{colorStatus(status, colorize), fmt.Sprintf("%d", n)})
					}
				}
				rows = append(rows,
					[]string{"Total queued", fmt.Sprintf("%d", health.Queue.Total)},
					[]string{"Lock markers", fmt.Sprintf("%d", health.Queue.LockMarkers)},
					[]string{"Archived approved", fmt.Sprintf("%d / %d", health.Archive.Approved, health.Archive.Cap)},
					[]string{"Archived rejected", fmt.Sprintf("%d / %d", health.Archive.Rejected, health.Archive.Cap)},
					[]string{"Open placement tickets", fmt.Sprintf("%d", health.PendingTickets)},
					[]string{"Staged copies", fmt.Sprintf("%d", health.StagedCopies)},
				)
				fmt.Fprintln(out, renderTable([]column{col("Item"), rightCol("Count")}, rows))
				if len(health.Queue.Unreadable) > 0 {
					fmt.Fprintln(out, "Unreadable documents:")
					for _, line := range slices.Sorted(slices.Values(health.Queue.Unreadable)) {
						fmt.Fprintf(out, "  %s\n", line)
					}
				}
				return nil
			})
		},
	})

	queueCmd.AddCommand(&cobra.Command{
		Use:   "repair",
		Short: "Drop archived queue entries, stale locks, and unneeded staged copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				report, err := mgr.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d stale queue entries, pruned %d lock markers\n",
					len(report.RemovedFromQueue), report.LocksPruned)
				for _, id := range report.RemovedFromQueue {
					fmt.Fprintf(out, "  %s\n", id)
				}
				if len(report.StagedRemoved) > 0 {
					fmt.Fprintf(out, "Removed %d staged copies no open ticket refers to\n", len(report.StagedRemoved))
				}
				if report.Unreadable > 0 {
					fmt.Fprintf(out, "%d unreadable documents left in place; see queue health\n", report.Unreadable)
				}
				return nil
			})
		},
	})
	return queueCmd
}
