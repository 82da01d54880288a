package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/model"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	runListBranch string
	runListStatus string
	runListEvent  string
	runListLimit  int
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(runListCmd, runViewCmd, runRerunCmd, runCancelCmd)

	runListCmd.Flags().StringVarP(&runListBranch, "branch", "b", "", "Filter by branch")
	runListCmd.Flags().StringVarP(&runListStatus, "status", "s", "", "Filter by status (queued/in_progress/completed/failure/...)")
	runListCmd.Flags().StringVarP(&runListEvent, "event", "e", "", "Filter by triggering event")
	runListCmd.Flags().IntVarP(&runListLimit, "limit", "L", 20, "Maximum number of runs")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Work with GitHub Actions workflow runs",
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow runs",
	Args:  cobra.NoArgs,
	RunE: gated(policy.RunList, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		runs, err := c.ListRuns(cmd.Context(), github.RunListOptions{
			Branch: runListBranch,
			Status: runListStatus,
			Event:  runListEvent,
			Limit:  runListLimit,
		})
		if err != nil {
			return err
		}
		return e.out.Runs(runs)
	}),
}

var runViewCmd = &cobra.Command{
	Use:   "view <run-id>",
	Short: "Show a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.RunView, prefixTarget("run"), func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		run, err := c.GetRun(cmd.Context(), id)
		if err != nil {
			return err
		}
		if e.out.JSON {
			return e.out.WriteJSON(run)
		}
		return e.out.Runs([]model.WorkflowRun{*run})
	}),
}

var runRerunCmd = &cobra.Command{
	Use:   "rerun <run-id>",
	Short: "Re-run a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.RunRerun, prefixTarget("run"), func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := c.RerunRun(cmd.Context(), id); err != nil {
			return err
		}
		return e.done("Requested re-run of %d", id)
	}),
}

var runCancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE: gated(policy.RunCancel, prefixTarget("run"), func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := c.CancelRun(cmd.Context(), id); err != nil {
			return err
		}
		return e.done("Requested cancellation of %d", id)
	}),
}
