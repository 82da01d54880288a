package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	ghmcp "github.com/ppiankov/ghgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs ghgate as an MCP (Model Context Protocol) server over stdio.\nExposes ghgate_check, ghgate_tiers and ghgate_rate_limit.",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	c, err := e.client(ctx)
	if err != nil {
		return err
	}

	srv, err := ghmcp.New(ghmcp.Config{
		Safety:  e.cfg,
		Monitor: e.monitor(c),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	e.log.Info().Str("repo", e.cfg.Repository).Msg("ghgate MCP server running on stdio")
	return srv.Run(ctx)
}
