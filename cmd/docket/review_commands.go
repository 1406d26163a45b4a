package main

import (
	"github.com/spf13/cobra"

	"docket/internal/submission"
	"docket/internal/workflow"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Record a team lead or admin decision",
		Long: "Record a review decision. Team leads review pending submissions of their first team;\n" +
			"admins give the final decision. Rejections and change requests need --reason.",
	}
	reviewCmd.AddCommand(newDecisionCommand(ctx, "approve", "Approve a submission", workflow.DecisionApprove))
	reviewCmd.AddCommand(newDecisionCommand(ctx, "reject", "Reject a submission", workflow.DecisionReject))
	reviewCmd.AddCommand(newDecisionCommand(ctx, "changes", "Send a submission back for changes", workflow.DecisionRequestChanges))
	return reviewCmd
}

func newDecisionCommand(ctx *commandContext, use, short string, decision workflow.Decision) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " <submission-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(mgr *workflow.Manager) error {
				var (
					res workflow.Result
					err error
				)
				if p.Role == submission.RoleAdmin {
					res, err = mgr.DecideAdmin(cmd.Context(), p, args[0], decision, reason)
				} else {
					res, err = mgr.DecideTeamLead(cmd.Context(), p, args[0], decision, reason)
				}
				if err != nil {
					return err
				}
				return ctx.printResult(cmd, res)
			})
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason shown to the submitter")
	return cmd
}
