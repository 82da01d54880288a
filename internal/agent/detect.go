// Package agent detects whether ghgate runs under an automated coding agent.
package agent

import "strings"

// ModeEnv explicitly enables or disables agent mode.
const ModeEnv = "GHGATE_AGENT_MODE"

// markers are variables set by known agent harnesses.
var markers = []string{
	"CLAUDECODE",
	"CODEX_SANDBOX",
	"GEMINI_CLI",
	"CURSOR_AGENT",
	"AIDER_MODEL",
}

// Mode is the detection outcome and what triggered it.
type Mode struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source,omitempty"`
}

// Detect reports agent mode from the environment. An explicit ModeEnv value
// wins; otherwise any non-empty marker variable enables it.
func Detect(getenv func(string) string) Mode {
	if v := strings.TrimSpace(getenv(ModeEnv)); v != "" {
		if on, ok := parseBool(v); ok {
			return Mode{Enabled: on, Source: ModeEnv}
		}
	}
	for _, key := range markers {
		if getenv(key) != "" {
			return Mode{Enabled: true, Source: key}
		}
	}
	return Mode{}
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
