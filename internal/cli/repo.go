package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/policy"
)

func init() {
	rootCmd.AddCommand(labelCmd, commentCmd, branchCmd)
	labelCmd.AddCommand(labelListCmd)
	commentCmd.AddCommand(commentDeleteCmd)
	branchCmd.AddCommand(branchDeleteCmd)
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Work with repository labels",
}

var labelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repository labels",
	Args:  cobra.NoArgs,
	RunE: gated(policy.LabelList, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		labels, err := c.ListLabels(cmd.Context())
		if err != nil {
			return err
		}
		return e.out.Labels(labels)
	}),
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Work with issue and pull request comments",
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Delete a comment (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.CommentDelete, prefixTarget("comment"), func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := c.DeleteComment(cmd.Context(), id); err != nil {
			return err
		}
		return e.done("Deleted comment %d", id)
	}),
}

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Work with remote branches",
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <branch>",
	Short: "Delete a remote branch (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.BranchDelete, firstArg, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		if err := c.DeleteBranch(cmd.Context(), args[0]); err != nil {
			return err
		}
		return e.done("Deleted branch %s", args[0])
	}),
}
