package main

import (
	"github.com/spf13/cobra"

	"docket/internal/workflow"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		description string
		tags        []string
		team        string
	)
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Send a file from your working area for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.Submit(cmd.Context(), p, workflow.SubmitRequest{
					Path:        args[0],
					Description: description,
					Tags:        tags,
					Team:        team,
				})
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "What changed in this file")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringVar(&team, "for-team", "", "Team to review the file (default: your first team)")
	return cmd
}

func newResubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		description string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "resubmit <submission-id|file-name>",
		Short: "Send a rejected or sent-back file for review again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			req := workflow.ResubmitRequest{Ref: args[0]}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("tag") {
				req.Tags = tags
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.Resubmit(cmd.Context(), p, req)
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Replace the description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Replace the tags (repeatable)")
	return cmd
}

func newWithdrawCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <submission-id>",
		Short: "Pull a pending submission back to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				res, err := mgr.Withdraw(cmd.Context(), p, args[0])
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	}
}
