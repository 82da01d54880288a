package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	prListState string
	prListBase  string
	prListHead  string
	prListLimit int

	prCreateTitle  string
	prCreateBody   string
	prCreateBase   string
	prCreateHead   string
	prCreateDraft  bool
	prCreateLabels []string

	prCommentBody string

	prEditTitle string
	prEditBody  string
	prEditBase  string

	prMergeMethod  string
	prMergeSHA     string
	prMergeSubject string
	prMergeBody    string
)

func init() {
	rootCmd.AddCommand(prCmd)
	prCmd.AddCommand(prListCmd, prViewCmd, prDiffCmd, prChecksCmd, prCommentsCmd,
		prCreateCmd, prCommentCmd, prEditCmd, prReadyCmd,
		prMergeCmd, prCloseCmd, prReopenCmd)

	prListCmd.Flags().StringVar(&prListState, "state", "open", "Filter by state (open/closed/all)")
	prListCmd.Flags().StringVar(&prListBase, "base", "", "Filter by base branch")
	prListCmd.Flags().StringVar(&prListHead, "head", "", "Filter by head (user:branch)")
	prListCmd.Flags().IntVarP(&prListLimit, "limit", "L", 30, "Maximum number of pull requests")

	prCreateCmd.Flags().StringVarP(&prCreateTitle, "title", "t", "", "Title (required)")
	prCreateCmd.Flags().StringVarP(&prCreateBody, "body", "b", "", "Body")
	prCreateCmd.Flags().StringVarP(&prCreateBase, "base", "B", "main", "Base branch")
	prCreateCmd.Flags().StringVarP(&prCreateHead, "head", "H", "", "Head branch (required)")
	prCreateCmd.Flags().BoolVarP(&prCreateDraft, "draft", "d", false, "Open as draft")
	prCreateCmd.Flags().StringSliceVarP(&prCreateLabels, "label", "l", nil, "Labels (default from config)")
	_ = prCreateCmd.MarkFlagRequired("title")
	_ = prCreateCmd.MarkFlagRequired("head")

	prCommentCmd.Flags().StringVarP(&prCommentBody, "body", "b", "", "Comment body (required)")
	_ = prCommentCmd.MarkFlagRequired("body")

	prEditCmd.Flags().StringVarP(&prEditTitle, "title", "t", "", "New title")
	prEditCmd.Flags().StringVarP(&prEditBody, "body", "b", "", "New body")
	prEditCmd.Flags().StringVarP(&prEditBase, "base", "B", "", "New base branch")

	prMergeCmd.Flags().StringVar(&prMergeMethod, "method", "merge", "Merge method (merge/squash/rebase)")
	prMergeCmd.Flags().StringVar(&prMergeSHA, "match-head-commit", "", "Only merge if head is at this SHA")
	prMergeCmd.Flags().StringVarP(&prMergeSubject, "subject", "s", "", "Merge commit subject")
	prMergeCmd.Flags().StringVarP(&prMergeBody, "body", "b", "", "Merge commit body")
}

var prCmd = &cobra.Command{
	Use:   "pr",
	Short: "Work with pull requests",
}

var prListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pull requests",
	Args:  cobra.NoArgs,
	RunE: gated(policy.PRList, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		prs, err := c.ListPulls(cmd.Context(), github.PullListOptions{State: prListState, Base: prListBase, Head: prListHead, Limit: prListLimit})
		if err != nil {
			return err
		}
		return e.out.PullRequests(prs)
	}),
}

var prViewCmd = &cobra.Command{
	Use:   "view <number>",
	Short: "Show a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRView, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		pr, err := c.GetPull(cmd.Context(), n)
		if err != nil {
			return err
		}
		return e.out.PullRequest(pr)
	}),
}

var prDiffCmd = &cobra.Command{
	Use:   "diff <number>",
	Short: "Show the diff of a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRDiff, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		diff, err := c.PullDiff(cmd.Context(), n)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(map[string]any{"number": n, "diff": diff})
		}
		_, err = fmt.Fprint(e.out.Writer(), diff)
		return err
	}),
}

var prChecksCmd = &cobra.Command{
	Use:   "checks <number>",
	Short: "Show check runs for a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRChecks, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		checks, err := c.PullChecks(cmd.Context(), n)
		if err != nil {
			return err
		}
		return e.out.Checks(checks)
	}),
}

var prCommentsCmd = &cobra.Command{
	Use:   "comments <number>",
	Short: "Show the conversation on a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRComments, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
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

var prCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a pull request",
	Args:  cobra.NoArgs,
	RunE: gated(policy.PRCreate, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		pr, err := c.CreatePull(cmd.Context(), github.NewPull{
			Title:  prCreateTitle,
			Head:   prCreateHead,
			Base:   prCreateBase,
			Body:   prCreateBody,
			Draft:  prCreateDraft,
			Labels: mergeLabels(prCreateLabels, e.cfg.DefaultLabels),
		})
		if err != nil {
			return err
		}
		return e.out.PullRequest(pr)
	}),
}

var prCommentCmd = &cobra.Command{
	Use:   "comment <number>",
	Short: "Comment on a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRComment, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		cm, err := c.Comment(cmd.Context(), n, prCommentBody)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(cm)
		}
		return e.done("Commented on #%d: %s", n, cm.URL)
	}),
}

var prEditCmd = &cobra.Command{
	Use:   "edit <number>",
	Short: "Edit title, body or base of a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PREdit, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		var edit github.PullEdit
		if cmd.Flags().Changed("title") {
			edit.Title = &prEditTitle
		}
		if cmd.Flags().Changed("body") {
			edit.Body = &prEditBody
		}
		if cmd.Flags().Changed("base") {
			edit.Base = &prEditBase
		}
		if edit == (github.PullEdit{}) {
			return fmt.Errorf("nothing to edit: pass --title, --body or --base")
		}
		pr, err := c.EditPull(cmd.Context(), n, edit)
		if err != nil {
			return err
		}
		return e.out.PullRequest(pr)
	}),
}

var prReadyCmd = &cobra.Command{
	Use:   "ready <number>",
	Short: "Mark a draft pull request as ready for review",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRReady, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		if err := c.MarkReady(cmd.Context(), n); err != nil {
			return err
		}
		return e.done("Pull request #%d is ready for review", n)
	}),
}

var prMergeCmd = &cobra.Command{
	Use:   "merge <number>",
	Short: "Merge a pull request (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.PRMerge, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		res, err := c.MergePull(cmd.Context(), n, github.MergeOptions{
			Method:        prMergeMethod,
			CommitTitle:   prMergeSubject,
			CommitMessage: prMergeBody,
			SHA:           prMergeSHA,
		})
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(res)
		}
		return e.done("Merged #%d (%s)", n, res.SHA)
	}),
}

var prCloseCmd = &cobra.Command{
	Use:   "close <number>",
	Short: "Close a pull request (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE:  setPullState(policy.PRClose, "closed", "Closed"),
}

var prReopenCmd = &cobra.Command{
	Use:   "reopen <number>",
	Short: "Reopen a pull request (destructive)",
	Args:  cobra.ExactArgs(1),
	RunE:  setPullState(policy.PRReopen, "open", "Reopened"),
}

func setPullState(op policy.Operation, state, verb string) func(*cobra.Command, []string) error {
	return gated(op, numberTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		n, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		pr, err := c.SetPullState(cmd.Context(), n, state)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(pr)
		}
		return e.done("%s pull request #%d", verb, n)
	})
}
