package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	bulkLabel  string
	bulkReason string
	bulkAdd    []string
	bulkLimit  int
	bulkDryRun bool
)

func init() {
	rootCmd.AddCommand(bulkCmd)
	bulkCmd.AddCommand(bulkCloseCmd, bulkLabelCmd)

	bulkCmd.PersistentFlags().StringVarP(&bulkLabel, "label", "l", "", "Select open issues carrying this label (required)")
	bulkCmd.PersistentFlags().IntVarP(&bulkLimit, "limit", "L", github.MaxBulk, "Maximum number of issues to touch")
	bulkCmd.PersistentFlags().BoolVar(&bulkDryRun, "dry-run", false, "Only list matching issues")
	bulkCloseCmd.Flags().StringVarP(&bulkReason, "reason", "r", "not_planned", "Close reason (completed/not_planned)")
	bulkLabelCmd.Flags().StringSliceVar(&bulkAdd, "add", nil, "Labels to add (required)")
}

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Apply one change to many issues (destructive)",
	Long: "Bulk operations select open issues by label and are destructive.\n" +
		"With --dry-run only the selection runs and is gated as a read.",
}

var bulkCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close every open issue carrying --label",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, policy.BulkClose, func(cmd *cobra.Command, c *github.Client) (*github.BulkResult, error) {
			return c.BulkClose(cmd.Context(), bulkLabel, bulkReason, bulkLimit, bulkDryRun)
		})
	},
}

var bulkLabelCmd = &cobra.Command{
	Use:   "label",
	Short: "Add --add labels to every open issue carrying --label",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, policy.BulkLabel, func(cmd *cobra.Command, c *github.Client) (*github.BulkResult, error) {
			return c.BulkLabel(cmd.Context(), bulkLabel, bulkAdd, bulkLimit, bulkDryRun)
		})
	},
}

// bulkOperation picks the operation to gate: a dry run only lists.
func bulkOperation(op policy.Operation, dryRun bool) policy.Operation {
	if dryRun {
		return policy.IssueList
	}
	return op
}

func runBulk(cmd *cobra.Command, op policy.Operation, apply func(*cobra.Command, *github.Client) (*github.BulkResult, error)) error {
	if bulkLabel == "" {
		return fmt.Errorf("--label is required")
	}
	e, c, err := prepare(cmd, bulkOperation(op, bulkDryRun), "label:"+bulkLabel)
	if err != nil {
		return err
	}
	defer e.close()

	res, err := apply(cmd, c)
	if err != nil {
		return err
	}
	if e.out.JSON {
		if err := e.out.WriteJSON(res); err != nil {
			return err
		}
		return res.Err()
	}

	w := e.out.Writer()
	if res.DryRun {
		fmt.Fprintf(w, "Would %s %d issues: %v\n", op, len(res.Matched), res.Matched)
		return nil
	}
	fmt.Fprintf(w, "%s: %d matched, %d succeeded, %d failed\n", op, len(res.Matched), len(res.Succeeded), len(res.Failed))
	return res.Err()
}
