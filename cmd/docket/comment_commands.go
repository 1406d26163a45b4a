package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docket/internal/workflow"
)

func newCommentCommand(ctx *commandContext) *cobra.Command {
	commentCmd := &cobra.Command{
		Use:   "comment",
		Short: "Discuss a submission",
	}

	commentCmd.AddCommand(&cobra.Command{
		Use:   "add <submission-id> <text...>",
		Short: "Add a comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.AddComment(cmd.Context(), p, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	})

	commentCmd.AddCommand(&cobra.Command{
		Use:   "list <submission-id>",
		Short: "Show the comments on a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				notes, err := mgr.ListComments(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.flags.json {
					return writeJSON(cmd, notes)
				}
				out := cmd.OutOrStdout()
				if len(notes) == 0 {
					fmt.Fprintln(out, "No comments")
					return nil
				}
				rows := make([][]string, 0, len(notes))
				for _, n := range notes {
					rows = append(rows, []string{formatWhen(n.CreatedAt), n.Actor, n.Body})
				}
				fmt.Fprintln(out, renderTable([]column{col("When"), col("Who"), col("Comment")}, rows))
				return nil
			})
		},
	})
	return commentCmd
}
