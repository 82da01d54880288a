package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/policy"
)

var (
	projectMoveProject string
	projectMoveField   string
	projectMoveOption  string
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectMoveCmd)

	projectMoveCmd.Flags().StringVar(&projectMoveProject, "project", "", "Project node ID (default board.project_id)")
	projectMoveCmd.Flags().StringVar(&projectMoveField, "field", "", "Single-select field ID (default board.field_id)")
	projectMoveCmd.Flags().StringVar(&projectMoveOption, "option", "", "Target option ID (default board.option_id)")
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Work with Projects v2 boards",
}

var projectListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List the single-select fields and options of a board (default board.project_id)",
	Args:  cobra.MaximumNArgs(1),
	RunE: gated(policy.ProjectList, nil, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		id := e.cfg.Board.ProjectID
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return errors.New("no project id: pass one or set board.project_id")
		}
		board, err := c.GetProject(cmd.Context(), id)
		if err != nil {
			return err
		}
		return e.out.Project(board)
	}),
}

var projectMoveCmd = &cobra.Command{
	Use:   "move <number|item-id>",
	Short: "Set an issue, pull request or board item to a field option",
	Long: "An issue or pull request number is added to the board first when it is\n" +
		"not on it yet. A PVTI_ item ID is moved as is.",
	Args: cobra.ExactArgs(1),
	RunE: gated(policy.ProjectMove, projectTarget, func(cmd *cobra.Command, e *env, c *github.Client, args []string) error {
		move, err := projectMove(e, args[0])
		if err != nil {
			return err
		}
		item, err := c.MoveItem(cmd.Context(), move)
		if err != nil {
			return err
		}
		return e.done("Moved %s (item %s) to option %s", projectTarget(args), item, move.OptionID)
	}),
}

// projectMove builds the move from flags, falling back to the configured board.
func projectMove(e *env, arg string) (github.ProjectMove, error) {
	m := github.ProjectMove{
		ProjectID: firstNonEmpty(projectMoveProject, e.cfg.Board.ProjectID),
		FieldID:   firstNonEmpty(projectMoveField, e.cfg.Board.FieldID),
		OptionID:  firstNonEmpty(projectMoveOption, e.cfg.Board.OptionID),
	}
	switch {
	case m.ProjectID == "":
		return m, errors.New("no project id: pass --project or set board.project_id")
	case m.FieldID == "":
		return m, errors.New("no field id: pass --field or set board.field_id")
	case m.OptionID == "":
		return m, errors.New("no option id: pass --option or set board.option_id")
	}

	if isItemID(arg) {
		m.ItemID = arg
		return m, nil
	}
	n, err := parseNumber(arg)
	if err != nil {
		return m, err
	}
	m.Number = n
	return m, nil
}

// projectTarget renders numbers as "#N" and item IDs as "item:<id>".
func projectTarget(args []string) string {
	if len(args) == 0 {
		return ""
	}
	if isItemID(args[0]) {
		return "item:" + args[0]
	}
	return numberTarget(args)
}

func isItemID(s string) bool {
	return strings.HasPrefix(s, "PVTI_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
