package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docket/internal/archive"
	"docket/internal/workflow"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse closed submissions",
	}

	var (
		bucketName string
		limit      int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List one archive bucket, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, ok := archive.ParseBucket(bucketName)
			if !ok {
				return fmt.Errorf("unknown bucket %q (want approved or rejected)", bucketName)
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				entries, err := mgr.ArchiveEntries(cmd.Context(), bucket, limit)
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "The %s bucket is empty\n", bucket)
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					sub := e.Submission
					where := "-"
					if p := sub.Placement; p != nil {
						where = p.FinalPath
						if where == "" {
							where = string(p.Outcome)
						}
					}
					rows = append(rows, []string{
						shortID(sub.ID), sub.Artifact.Name, colorStatus(sub.Status, colorize),
						sub.SubmitterID, sub.Team, formatWhen(e.ArchivedAt), where,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					col("ID"), col("File"), col("Status"), col("Submitter"), col("Team"), col("Archived"), col("Location"),
				}, rows))
				return nil
			})
		},
	}
	listCmd.Flags().StringVarP(&bucketName, "bucket", "b", string(archive.BucketApproved), "approved or rejected")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")
	archiveCmd.AddCommand(listCmd)
	return archiveCmd
}
