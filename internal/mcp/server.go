// Package mcp exposes the ghgate gate and quota monitor as MCP tools so
// agents can ask before they act.
package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/ghgate/internal/config"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// Config holds MCP server dependencies.
type Config struct {
	Safety  *config.SafetyConfig
	Monitor *ratelimit.Monitor
	Version string
}

// Server wraps the MCP SDK server with the ghgate tools.
type Server struct {
	mcpServer *mcpsdk.Server
	cfg       *config.SafetyConfig
	monitor   *ratelimit.Monitor
}

// New creates an MCP server with all tools registered. Monitor may be nil,
// in which case rate limit queries report no information.
func New(cfg Config) (*Server, error) {
	if cfg.Safety == nil {
		return nil, errors.New("mcp: safety config is required")
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:     cfg.Safety,
		monitor: cfg.Monitor,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "ghgate",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "ghgate_check",
		Description: "Check whether a GitHub operation would pass the ghgate safety gate (dry-run). Returns the operation tier and, when denied, how to proceed.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "ghgate_tiers",
		Description: "List every known operation with its safety tier (read, write, destructive).",
	}, s.handleTiers)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "ghgate_rate_limit",
		Description: "Report remaining GitHub API quota for a resource (default core) with warn/block/exhausted flags.",
	}, s.handleRateLimit)
}
