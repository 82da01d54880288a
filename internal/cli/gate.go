package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ghgate/internal/alert"
	"github.com/ppiankov/ghgate/internal/audit"
	"github.com/ppiankov/ghgate/internal/confirm"
	"github.com/ppiankov/ghgate/internal/github"
	"github.com/ppiankov/ghgate/internal/output"
	"github.com/ppiankov/ghgate/internal/policy"
	"github.com/ppiankov/ghgate/internal/ratelimit"
	"github.com/ppiankov/ghgate/internal/redact"
)

// listOps check core quota before they run.
var listOps = map[policy.Operation]bool{
	policy.PRList:      true,
	policy.IssueList:   true,
	policy.RunList:     true,
	policy.LabelList:   true,
	policy.ProjectList: true,
}

const alertTimeout = 15 * time.Second

type runFunc func(cmd *cobra.Command, e *env, c *github.Client, args []string) error

type targetFunc func(args []string) string

// gated wraps fn with the full pre-flight sequence for op.
func gated(op policy.Operation, target targetFunc, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		t := ""
		if target != nil {
			t = target(args)
		}
		e, c, err := prepare(cmd, op, t)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd, e, c, args)
	}
}

// prepare loads the environment, gates op on target and, for list
// operations, checks quota. Nothing touches the network before the gate passes.
func prepare(cmd *cobra.Command, op policy.Operation, target string) (*env, *github.Client, error) {
	e, err := loadEnv(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if err := e.gate(ctx, op, target); err != nil {
		e.close()
		return nil, nil, err
	}

	c, err := e.client(ctx)
	if err != nil {
		e.close()
		return nil, nil, err
	}
	if listOps[op] {
		if err := e.checkQuota(ctx, e.monitor(c)); err != nil {
			e.close()
			return nil, nil, err
		}
	}
	return e, c, nil
}

// gate runs the policy check for op and, when configured, consumes a
// confirmation token for destructive operations. Every decision is audited;
// denials and allowed destructive operations are also sent to alert webhooks.
func (e *env) gate(ctx context.Context, op policy.Operation, target string) error {
	err := policy.Check(string(op), flagWrite, e.cfg)
	if err == nil && e.cfg.RequireConfirmToken && op.Tier() == policy.Destructive {
		err = e.requireConfirm(op, target)
	}
	e.record(op, target, err)
	switch {
	case err != nil:
		e.notify(ctx, e.decisionEvent(alert.EventDeny, op, target, err))
	case op.Tier() == policy.Destructive:
		e.notify(ctx, e.decisionEvent(alert.EventDestructive, op, target, nil))
	}
	if err != nil {
		e.log.Debug().Str("operation", string(op)).Str("target", target).Err(err).Msg("gate denied")
		return err
	}
	e.log.Debug().Str("operation", string(op)).Str("tier", op.Tier().String()).Msg("gate passed")
	return nil
}

func (e *env) requireConfirm(op policy.Operation, target string) error {
	var store *confirm.Store
	if flagConfirm != "" {
		s, err := confirm.NewStore(confirm.DefaultDir())
		if err != nil {
			return err
		}
		store = s
	}
	_, err := confirm.Require(store, string(op), target, flagConfirm)
	return err
}

// record appends the decision to the audit log. Audit failures are logged,
// never fatal.
func (e *env) record(op policy.Operation, target string, decision error) {
	if e.cfg.AuditLog == "" {
		return
	}
	if e.auditLog == nil {
		l, err := audit.Open(expandHome(e.cfg.AuditLog))
		if err != nil {
			e.log.Warn().Err(err).Msg("audit log unavailable")
			return
		}
		e.auditLog = l
	}

	entry := audit.Entry{
		Operation: string(op),
		Tier:      op.Tier().String(),
		Decision:  audit.DecisionAllow,
		Target:    target,
		Agent:     e.mode.Enabled,
	}
	if repo := e.cfg.Repo(); !repo.IsZero() {
		entry.Repo = repo.String()
	}
	if decision != nil {
		entry.Decision = audit.DecisionDeny
		reason, _, _ := strings.Cut(decision.Error(), "\n")
		entry.Reason = redact.String(reason)
	}
	if err := e.auditLog.Record(entry); err != nil {
		e.log.Warn().Err(err).Msg("audit record failed")
	}
}

func (e *env) decisionEvent(kind string, op policy.Operation, target string, decision error) alert.Event {
	ev := alert.Event{
		Kind:      kind,
		Repo:      e.cfg.Repository,
		Operation: string(op),
		Tier:      op.Tier().String(),
		Target:    target,
		Agent:     e.mode.Enabled,
	}
	if decision != nil {
		reason, _, _ := strings.Cut(decision.Error(), "\n")
		ev.Reason = redact.String(reason)
	}
	return ev
}

// notify delivers ev to the configured webhooks. Delivery failures are
// logged, never fatal.
func (e *env) notify(ctx context.Context, ev alert.Event) {
	if e.alerts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	if err := e.alerts.Dispatch(ctx, ev); err != nil {
		e.log.Warn().Err(err).Str("kind", ev.Kind).Msg("alert delivery failed")
	}
}

// checkQuota consults the monitor for the core resource, prints the
// warning banner and applies the hard block when enabled.
func (e *env) checkQuota(ctx context.Context, mon *ratelimit.Monitor) error {
	limit, err := mon.Check(ctx, ratelimit.DefaultResource)
	if err != nil {
		return err
	}
	if limit == nil {
		e.log.Debug().Msg("quota unknown, proceeding")
		return nil
	}
	if ratelimit.ShouldWarn(*limit, e.cfg) {
		e.log.Warn().Int("remaining", limit.Remaining).Int("limit", limit.Limit).Msg("low API quota")
		e.notify(ctx, alert.Event{
			Kind:      alert.EventQuotaLow,
			Repo:      e.cfg.Repository,
			Remaining: limit.Remaining,
			Agent:     e.mode.Enabled,
		})
		if !e.mode.Enabled {
			output.WriteBanner(e.stderr, limit, e.cfg)
		}
	}
	return ratelimit.Enforce(limit, e.cfg)
}

func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

func parseID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return n, nil
}

// numberTarget renders the first argument as "#N".
func numberTarget(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return "#" + strings.TrimPrefix(args[0], "#")
}

// prefixTarget renders the first argument as "<prefix>:<arg>".
func prefixTarget(prefix string) targetFunc {
	return func(args []string) string {
		if len(args) == 0 {
			return ""
		}
		return prefix + ":" + args[0]
	}
}

// confirmTargetFor rewrites a user-supplied token target into the form the
// gate uses for op: "42" becomes "#42" for pull requests and issues,
// "comment:42" for comment_delete and "label:stale" for bulk operations.
// Branch names are kept verbatim.
func confirmTargetFor(op policy.Operation, target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	_, numErr := strconv.Atoi(target)
	switch op {
	case policy.BranchDelete:
		return target
	case policy.CommentDelete:
		if numErr == nil {
			return "comment:" + target
		}
	case policy.BulkClose, policy.BulkLabel:
		if !strings.HasPrefix(target, "label:") {
			return "label:" + target
		}
	default:
		if numErr == nil {
			return "#" + target
		}
	}
	return target
}

// firstArg uses the first argument verbatim.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// mergeLabels returns explicit labels, or the configured defaults when none are given.
func mergeLabels(explicit, defaults []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	return append([]string(nil), defaults...)
}

// done prints a one-line confirmation, or a JSON object in JSON mode.
func (e *env) done(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if e.out.JSON {
		return e.out.WriteJSON(map[string]any{"ok": true, "message": msg})
	}
	_, err := fmt.Fprintln(e.out.Writer(), msg)
	return err
}
