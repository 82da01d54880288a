package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/output"
	"github.com/ppiankov/ghgate/internal/policy"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

var rateResource string

func init() {
	rootCmd.AddCommand(tiersCmd, checkCmd, rateCmd)
	rateCmd.Flags().StringVar(&rateResource, "resource", "", "Only show this resource (core/search/graphql/...)")
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List every operation and its safety tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		return e.out.Tiers(policy.Operations())
	},
}

// checkResult is the JSON shape of "ghgate check".
type checkResult struct {
	Operation  string `json:"operation"`
	Tier       string `json:"tier"`
	Known      bool   `json:"known"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func evaluate(operation string, write bool, e *env) (checkResult, error) {
	res := checkResult{
		Operation: operation,
		Tier:      policy.TierOf(operation).String(),
		Known:     policy.IsKnown(operation),
		Allowed:   true,
	}
	err := policy.Check(operation, write, e.cfg)
	var v *policy.SafetyViolation
	if errors.As(err, &v) {
		res.Allowed = false
		res.Reason = v.Message
		res.Suggestion = v.Suggestion
	}
	return res, err
}

var checkCmd = &cobra.Command{
	Use:   "check <operation>",
	Short: "Run the safety gate for an operation without calling GitHub",
	Long:  "Exits 0 when the operation would be allowed and 2 when it would be denied.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		res, gateErr := evaluate(args[0], flagWrite, e)
		if e.out.JSON {
			if err := e.out.WriteJSON(res); err != nil {
				return err
			}
			return gateErr
		}
		if gateErr != nil {
			return gateErr
		}
		known := ""
		if !res.Known {
			known = " (unrecognized, treated as write)"
		}
		_, err = fmt.Fprintf(e.out.Writer(), "allowed: %s is %s%s\n", res.Operation, res.Tier, known)
		return err
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Show remaining GitHub API quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, c, err := prepare(cmd, policy.RateLimit, "")
		if err != nil {
			return err
		}
		defer e.close()

		limits := e.monitor(c).Get(cmd.Context(), true)
		if len(limits) == 0 {
			return errors.New("no quota information available (run with --verbose for details)")
		}
		if rateResource != "" {
			l, ok := limits[rateResource]
			if !ok {
				return fmt.Errorf("unknown resource %q", rateResource)
			}
			limits = map[string]ratelimit.RateLimit{rateResource: l}
		}
		if err := e.out.RateLimits(limits); err != nil {
			return err
		}
		if core, ok := limits[ratelimit.DefaultResource]; ok && !e.out.JSON {
			output.WriteBanner(e.stderr, &core, e.cfg)
		}
		return nil
	},
}
