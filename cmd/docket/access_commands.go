package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docket/internal/workflow"
)

func newAccessCommand(ctx *commandContext) *cobra.Command {
	accessCmd := &cobra.Command{
		Use:   "access",
		Short: "Manual placement tickets for approved files",
	}

	var all bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List placement tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				tickets, err := mgr.ListAccessRequests(cmd.Context(), !all)
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, tickets)
				}
				out := cmd.OutOrStdout()
				if len(tickets) == 0 {
					fmt.Fprintln(out, "No open tickets")
					return nil
				}
				rows := make([][]string, 0, len(tickets))
				for _, t := range tickets {
					name := "-"
					if t.Submission != nil {
						name = t.Submission.Artifact.Name
					}
					rows = append(rows, []string{
						t.ID, name, string(t.Status), t.Destination,
						fmt.Sprintf("%d", t.Attempts), formatWhen(t.UpdatedAt), t.Error,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					col("Ticket"), col("File"), col("Status"), col("Destination"),
					rightCol("Attempts"), col("Updated"), col("Last error"),
				}, rows))
				if len(tickets) == 1 && tickets[0].Status.IsOpen() {
					fmt.Fprintln(out, "Next steps:")
					fmt.Fprintln(out, "  "+strings.Join(tickets[0].Remediation, "\n  "))
				}
				return nil
			})
		},
	}
	listCmd.Flags().BoolVarP(&all, "all", "a", false, "Include closed tickets")
	accessCmd.AddCommand(listCmd)

	accessCmd.AddCommand(&cobra.Command{
		Use:   "complete <ticket-id>",
		Short: "Mark a ticket done after placing the file by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.CompleteAccessRequest(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	})

	accessCmd.AddCommand(&cobra.Command{
		Use:   "retry <ticket-id>",
		Short: "Try automatic placement again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.RetryAccessRequest(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	})
	return accessCmd
}
