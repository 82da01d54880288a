package policy

import (
	"fmt"

	"github.com/ppiankov/ghgate/internal/config"
)

// WriteFlag is the flag a caller must set to run Write and Destructive
// operations.
const WriteFlag = "--write"

// SafetyViolation is returned when an operation is denied by policy.
// Denial is deterministic: retrying with the same flags yields the same result.
type SafetyViolation struct {
	Message    string
	Tier       Tier
	Operation  string
	Suggestion string
}

func (v *SafetyViolation) Error() string {
	if v.Suggestion == "" {
		return v.Message
	}
	return v.Message + "\n  → " + v.Suggestion
}

// Check decides whether operation may proceed given the write flag.
// Read operations always pass. Write and Destructive operations pass only
// when write is true. Unknown names are treated as Write.
//
// Check has no side effects. Any extra confirmation for Destructive
// operations is the caller's concern and is not decided here.
func Check(operation string, write bool, cfg *config.SafetyConfig) error {
	tier := TierOf(operation)
	if !tier.RequiresWrite() || write {
		return nil
	}

	subject := operation
	if cfg != nil && !cfg.Repo().IsZero() {
		subject = fmt.Sprintf("%s on %s", operation, cfg.Repo())
	}
	msg := fmt.Sprintf("%s is a %s operation and was not permitted", subject, tier)
	if !IsKnown(operation) {
		msg = fmt.Sprintf("%s is not a recognized operation and is treated as %s", subject, tier)
	}

	return &SafetyViolation{
		Message:    msg,
		Tier:       tier,
		Operation:  operation,
		Suggestion: fmt.Sprintf("re-run with %s to allow %s operations", WriteFlag, tier),
	}
}
