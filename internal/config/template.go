package config

// DefaultYAML returns a commented config file for init-config.
func DefaultYAML() string {
	return `# ghgate configuration
# Generated by: ghgate init-config
#
# Precedence (lowest to highest):
#   built-in defaults -> this file -> GHGATE_* environment -> command-line flags

# Target repository (owner/name). Falls back to GH_REPO, then GITHUB_REPOSITORY.
# repo: octo/hello

# GitHub Enterprise Server host. Empty means github.com.
# host: github.example.com

# Quota thresholds for the core REST resource.
# remaining < warn_threshold  -> warning banner
# remaining < block_threshold -> hard stop, only when hard_block is true
# block_threshold must be lower than warn_threshold.
warn_threshold: 500
block_threshold: 100
hard_block: false

# Destructive operations (merge, close, reopen, delete, bulk) additionally
# require a single-use token from "ghgate confirm create" when enabled.
require_confirm_token: false

# Labels applied by issue create and pr create when none are given.
default_labels: []

# Default Projects v2 board for "ghgate project list" and "project move".
# Node IDs; run "ghgate project list <project-id>" to see field and option IDs.
board:
  project_id: ""
  field_id: ""
  option_id: ""

# Hash-chained decision log. Empty disables auditing.
# audit_log: ~/.ghgate/audit.jsonl

# Webhooks notified on gate decisions. Events: deny, destructive, quota_low.
# Formats: generic (default), slack, pagerduty.
# alerts:
#   - url: https://hooks.slack.com/services/...
#     format: slack
#     events: [deny, destructive]

# Client-side request pacing.
requests_per_second: 10
burst: 5
`
}
