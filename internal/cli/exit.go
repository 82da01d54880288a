package cli

import (
	"errors"

	gh "github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/confirm"
	"github.com/ppiankov/ghgate/internal/policy"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitDenied  = 2
	ExitQuota   = 3
	ExitConfig  = 78 // EX_CONFIG
)

// configError marks failures to load or validate configuration.
type configError struct {
	err error
}

func (e *configError) Error() string { return "config: " + e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var violation *policy.SafetyViolation
	var required *confirm.RequiredError
	var exhausted *ratelimit.RateExhaustedError
	var threshold *ratelimit.ThresholdError
	var cfgErr *configError
	var apiLimit *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError

	switch {
	case errors.As(err, &violation), errors.As(err, &required):
		return ExitDenied
	case errors.As(err, &exhausted), errors.As(err, &threshold),
		errors.As(err, &apiLimit), errors.As(err, &abuse):
		return ExitQuota
	case errors.As(err, &cfgErr):
		return ExitConfig
	default:
		return ExitFailure
	}
}
