package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docket/internal/submission"
	"docket/internal/workflow"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses []string
		search   string
		sortBy   string
		team     string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the submissions you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			opts := workflow.ListOptions{Team: team, Search: search, Sort: workflow.SortOrder(strings.ToLower(sortBy))}
			switch opts.Sort {
			case workflow.SortNewest, workflow.SortOldest, workflow.SortName, workflow.SortStatus:
			default:
				return fmt.Errorf("unknown sort %q (want newest, oldest, name, or status)", sortBy)
			}
			for _, value := range statuses {
				status, ok := submission.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				opts.Statuses = append(opts.Statuses, status)
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				entries, err := mgr.ListForActor(cmd.Context(), p, opts)
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No submissions")
					return nil
				}
				fmt.Fprintln(out, renderEntries(entries, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show these statuses (repeatable)")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Match name, description, tags, submitter, or team")
	cmd.Flags().StringVar(&sortBy, "sort", string(workflow.SortNewest), "Sort by newest, oldest, name, or status")
	cmd.Flags().StringVar(&team, "filter-team", "", "Only show this team")
	return cmd
}

func renderEntries(entries []workflow.Entry, colorize bool) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		sub := e.Submission
		note := e.Note
		if note == "" && sub.Placement != nil {
			note = string(sub.Placement.Outcome)
		}
		rows = append(rows, []string{
			shortID(sub.ID),
			sub.Artifact.Name,
			colorStatus(sub.Status, colorize),
			sub.SubmitterID,
			sub.Team,
			formatSize(sub.Artifact.Size),
			formatWhen(sub.UpdatedAt),
			fmt.Sprintf("%d", e.Comments),
			note,
		})
	}
	return renderTable([]column{
		col("ID"), col("File"), col("Status"), col("Submitter"), col("Team"),
		rightCol("Size"), col("Updated"), rightCol("Comments"), col("Note"),
	}, rows)
}
