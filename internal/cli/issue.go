package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	issueListState  string
	issueListLabels []string
	issueListLimit  int

	issueCreateTitle     string
	issueCreateBody      string
	issueCreateLabels    []string
	issueCreateAssignees []string

	issueCommentBody string

	issueEditTitle string
	issueEditBody  string

	issueCloseReason string
)

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueListCmd, issueViewCmd, issueCommentsCmd,
		issueCreateCmd, issueCommentCmd, issueEditCmd, issueLabelCmd, issueAssignCmd,
		issueCloseCmd, issueReopenCmd)

	issueListCmd.Flags().StringVar(&issueListState, "state", "open", "Filter by state (open/closed/all)")
	issueListCmd.Flags().StringSliceVarP(&issueListLabels, "label", "l", nil, "Filter by labels")
	issueListCmd.Flags().IntVarP(&issueListLimit, "limit", "L", 30, "Maximum number of issues")

	issueCreateCmd.Flags().StringVarP(&issueCreateTitle, "title", "t", "", "Title (required)")
	issueCreateCmd.Flags().StringVarP(&issueCreateBody, "body", "b", "", "Body")
	issueCreateCmd.Flags().StringSliceVarP(&issueCreateLabels, "label", "l", nil, "Labels (default from config)")
	issueCreateCmd.Flags().StringSliceVarP(&issueCreateAssignees, "assignee", "a", nil, "Assignees")
	_ = issueCreateCmd.MarkFlagRequired("title")

	issueCommentCmd.Flags().StringVarP(&issueCommentBody, "body", "b", "", "Comment body (required)")
	_ = issueCommentCmd.MarkFlagRequired("body")

	issueEditCmd.Flags().StringVarP(&issueEditTitle, "title", "t", "", "New title")
	issueEditCmd.Flags().StringVarP(&issueEditBody, "body", "b", "", "New body")

	issueCloseCmd.Flags().StringVarP(&issueCloseReason, "reason", "r", "completed", "Close reason (completed/not_planned)")
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Work with issues",
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Args:  cobra.NoArgs,
	RunE: gated(policy.IssueList, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		issues, err := c.ListIssues(cmd.Context(), github.IssueListOptions{State: issueListState, Labels: issueListLabels, Limit: issueListLimit})
		if err != nil {
			return err
		}
		return e.out.Issues(issues)
	}),
}

var issueViewCmd = &cobra.Command{
	Use:   "view <number>",
	Short: "Show an issue",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueView, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		is, err := c.GetIssue(cmd.Context(), n)
		if err != nil {
			return err
		}
		return e.out.Issue(is)
	}),
}

var issueCommentsCmd = &cobra.Command{
	Use:   "comments <number>",
	Short: "Show the conversation on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueComments, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		comments, err := c.ListComments(cmd.Context(), n)
		if err != nil {
			return err
		}
		return e.out.Comments(comments)
	}),
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open an issue",
	Args:  cobra.NoArgs,
	RunE: gated(policy.IssueCreate, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		is, err := c.CreateIssue(cmd.Context(), github.NewIssue{
			Title:     issueCreateTitle,
			Body:      issueCreateBody,
			Labels:    mergeLabels(issueCreateLabels, e.cfg.DefaultLabels),
			Assignees: issueCreateAssignees,
		})
		if err != nil {
			return err
		}
		return e.out.Issue(is)
	}),
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment <number>",
	Short: "Comment on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueComment, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		cm, err := c.Comment(cmd.Context(), n, issueCommentBody)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(cm)
		}
		return e.done("Commented on #%d: %s", n, cm.URL)
	}),
}

var issueEditCmd = &cobra.Command{
	Use:   "edit <number>",
	Short: "Edit title or body of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueEdit, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		var edit github.IssueEdit
		if cmd.Flags().Changed("title") {
			edit.Title = &issueEditTitle
		}
		if cmd.Flags().Changed("body") {
			edit.Body = &issueEditBody
		}
		if edit == (github.IssueEdit{}) {
			return fmt.Errorf("nothing to edit: pass --title or --body")
		}
		is, err := c.EditIssue(cmd.Context(), n, edit)
		if err != nil {
			return err
		}
		return e.out.Issue(is)
	}),
}

var issueLabelCmd = &cobra.Command{
	Use:   "label <number> <label>...",
	Short: "Add labels to an issue or pull request",
	Args:  cobra.MinimumNArgs(2),
	RunE: gated(policy.IssueLabel, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		labels, err := c.AddLabels(cmd.Context(), n, args[1:])
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(map[string]any{"number": n, "labels": labels})
		}
		return e.done("#%d labels: %s", n, strings.Join(labels, ", "))
	}),
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <number> <login>...",
	Short: "Assign users to an issue or pull request",
	Args:  cobra.MinimumNArgs(2),
	RunE: gated(policy.IssueAssign, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		is, err := c.Assign(cmd.Context(), n, args[1:])
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(is)
		}
		return e.done("#%d assignees: %s", n, strings.Join(is.Assignees, ", "))
	}),
}

var issueCloseCmd = &cobra.Command{
	Use:   "close <number>",
	Short: "Close an issue (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueClose, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		return setIssueState(cmd, e, c, args[0], "closed", issueCloseReason, "Closed")
	}),
}

var issueReopenCmd = &cobra.Command{
	Use:   "reopen <number>",
	Short: "Reopen an issue (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.IssueReopen, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		return setIssueState(cmd, e, c, args[0], "open", "reopened", "Reopened")
	}),
}

func setIssueState(cmd *cobra.Command, e *env, c *github.Client, arg, state, reason, verb string) error {
	n, err := parseNumber(arg)
	if err != nil {
		return err
	}
	is, err := c.SetIssueState(cmd.Context(), n, state, reason)
	if err != nil {
		return err
	}
	if e.out.JSON {
		return e.out.WriteJSON(is)
	}
	return e.done("%s issue #%d", verb, n)
}
