package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/agent"
	"github.com/ppiankov/ghgate/internal/alert"
	"github.com/ppiankov/ghgate/internal/audit"
	"github.com/ppiankov/ghgate/internal/config"
	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/output"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// env is everything a command needs for one invocation.
type env struct {
	cfg    *config.SafetyConfig
	mode   agent.Mode
	log    zerolog.Logger
	out    *output.Printer
	stderr io.Writer
	alerts *alert.Dispatcher

	auditLog *audit.Log
}

// loadEnv reads configuration and detects agent mode. Config failures are
// wrapped so they exit with ExitConfig.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(flagConfig, config.Overrides{Repo: flagRepo, Host: flagHost})
	if err != nil {
		return nil, &configError{err: err}
	}

	mode := agent.Detect(os.Getenv)
	stderr := cmd.ErrOrStderr()
	log := newLogger(stderr, mode.Enabled, flagVerbose, flagQuiet)
	if mode.Enabled {
		log.Debug().Str("source", mode.Source).Msg("agent mode")
	}

	return &env{
		cfg:    cfg,
		mode:   mode,
		log:    log,
		out:    output.New(cmd.OutOrStdout(), flagJSON || mode.Enabled),
		stderr: stderr,
		alerts: alert.NewDispatcher(cfg.Alerts),
	}, nil
}

// newLogger builds the process logger: console output for humans, JSON
// lines for agents.
func newLogger(w io.Writer, jsonLogs, verbose, quiet bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.ErrorLevel
	}

	out := w
	if !jsonLogs {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func (e *env) client(ctx context.Context) (*github.Client, error) {
	return github.NewClient(ctx, e.cfg.Repo(), github.Options{
		Token:             config.Token(),
		Host:              e.cfg.Host,
		RequestsPerSecond: e.cfg.RequestsPerSecond,
		Burst:             e.cfg.Burst,
		Logger:            e.log,
	})
}

// monitor wraps f in a quota monitor whose fetch failures are logged at
// debug level, so --verbose explains an empty quota report.
func (e *env) monitor(f ratelimit.QuotaFetcher) *ratelimit.Monitor {
	return ratelimit.NewMonitor(f, ratelimit.WithErrorHook(func(err error) {
		e.log.Debug().Err(err).Msg("quota unavailable")
	}))
}

func (e *env) close() {
	if e.auditLog != nil {
		if err := e.auditLog.Close(); err != nil {
			e.log.Warn().Err(err).Msg("close audit log")
		}
	}
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
