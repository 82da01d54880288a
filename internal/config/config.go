package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ppiankov/ghgate/internal/alert"
	"github.com/ppiankov/ghgate/internal/model"
)

// Default thresholds for quota warnings. A snapshot below WarnThreshold
// prints a banner; below BlockThreshold it is eligible for a hard stop.
const (
	DefaultWarnThreshold     = 500
	DefaultBlockThreshold    = 100
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
)

// EnvPrefix is the prefix for environment overrides (GHGATE_WARN_THRESHOLD).
// Nested keys use a double underscore: GHGATE_BOARD__OPTION_ID.
const EnvPrefix = "GHGATE_"

// BoardConfig is the default Projects v2 board used by project_list and
// project_move. All values are GraphQL node IDs; "ghgate project list"
// prints them.
type BoardConfig struct {
	ProjectID string `koanf:"project_id"` // PVT_...
	FieldID   string `koanf:"field_id"`   // single-select field, usually Status
	OptionID  string `koanf:"option_id"`  // default target option
}

// SafetyConfig is built once per invocation and passed by pointer to every
// check. Nothing mutates it after Load returns.
type SafetyConfig struct {
	Repository          string         `koanf:"repo"`
	Host                string         `koanf:"host"`
	WarnThreshold       int            `koanf:"warn_threshold"`
	BlockThreshold      int            `koanf:"block_threshold"`
	HardBlock           bool           `koanf:"hard_block"`
	RequireConfirmToken bool           `koanf:"require_confirm_token"`
	DefaultLabels       []string       `koanf:"default_labels"`
	Board               BoardConfig    `koanf:"board"`
	AuditLog            string         `koanf:"audit_log"`
	RequestsPerSecond   float64        `koanf:"requests_per_second"`
	Burst               int            `koanf:"burst"`
	Alerts              []alert.Config `koanf:"alerts"`

	repo model.Repo
}

// Overrides carries command-line values that win over every other layer.
type Overrides struct {
	Repo string
	Host string
}

// Default returns the built-in configuration.
func Default() *SafetyConfig {
	return &SafetyConfig{
		WarnThreshold:     DefaultWarnThreshold,
		BlockThreshold:    DefaultBlockThreshold,
		AuditLog:          DefaultAuditPath(),
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

// Repo returns the parsed target repository. Zero when none is configured.
func (c *SafetyConfig) Repo() model.Repo {
	return c.repo
}

// WithRepo returns a copy of c targeting repo.
func (c *SafetyConfig) WithRepo(repo model.Repo) *SafetyConfig {
	cp := *c
	cp.DefaultLabels = append([]string(nil), c.DefaultLabels...)
	cp.Alerts = append([]alert.Config(nil), c.Alerts...)
	cp.repo = repo
	cp.Repository = repo.String()
	return &cp
}

// Validate enforces the threshold ordering and parses the repository.
func (c *SafetyConfig) Validate() error {
	if c.WarnThreshold < 0 || c.BlockThreshold < 0 {
		return errors.New("warn_threshold and block_threshold must not be negative")
	}
	if c.BlockThreshold >= c.WarnThreshold {
		return fmt.Errorf("block_threshold (%d) must be lower than warn_threshold (%d)",
			c.BlockThreshold, c.WarnThreshold)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must not be negative, got %d", c.Burst)
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alerts[%d]: url is required", i)
		}
		if len(a.Events) == 0 {
			return fmt.Errorf("alerts[%d]: at least one event is required", i)
		}
		for _, ev := range a.Events {
			switch ev {
			case alert.EventDeny, alert.EventDestructive, alert.EventQuotaLow:
			default:
				return fmt.Errorf("alerts[%d]: unknown event %q", i, ev)
			}
		}
	}
	if c.Repository != "" {
		repo, err := model.ParseRepo(c.Repository)
		if err != nil {
			return err
		}
		c.repo = repo
	}
	return nil
}

// New validates thresholds and returns a config for repo.
func New(repo model.Repo, warn, block int) (*SafetyConfig, error) {
	cfg := Default()
	cfg.Repository = repo.String()
	cfg.WarnThreshold = warn
	cfg.BlockThreshold = block
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultDir returns ~/.ghgate.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ghgate")
	}
	return filepath.Join(home, ".ghgate")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultAuditPath returns the default audit log location.
func DefaultAuditPath() string {
	return filepath.Join(DefaultDir(), "audit.jsonl")
}

// Load layers defaults, the YAML file, GHGATE_* environment variables and
// overrides, then validates the result.
// Empty path falls back to ~/.ghgate/config.yaml, where a missing file is
// not an error. An explicit path must exist.
func Load(path string, ov Overrides) (*SafetyConfig, error) {
	k := koanf.New(".")

	def := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"warn_threshold":      def.WarnThreshold,
		"block_threshold":     def.BlockThreshold,
		"audit_log":           def.AuditLog,
		"requests_per_second": def.RequestsPerSecond,
		"burst":               def.Burst,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), YAML()); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	over := map[string]interface{}{}
	if ov.Repo != "" {
		over["repo"] = ov.Repo
	}
	if ov.Host != "" {
		over["host"] = ov.Host
	}
	if len(over) > 0 {
		if err := k.Load(confmap.Provider(over, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg SafetyConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Repository == "" {
		cfg.Repository = repoFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are decoded from comma-separated environment values.
var listKeys = map[string]bool{
	"default_labels": true,
}

// envKey maps GHGATE_BOARD__OPTION_ID to board.option_id.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// envValue maps an environment variable to its koanf key and value.
// GHGATE_DEFAULT_LABELS=bug,triage becomes ["bug", "triage"].
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func repoFromEnv() string {
	if r := os.Getenv("GH_REPO"); r != "" {
		return r
	}
	return os.Getenv("GITHUB_REPOSITORY")
}

// Token returns the API token from GH_TOKEN or GITHUB_TOKEN.
func Token() string {
	if t := os.Getenv("GH_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GITHUB_TOKEN")
}
