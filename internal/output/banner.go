package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ppiankov/ghgate/internal/config"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// Banner returns the low-quota warning for limit, or "" when quota is
// unknown or not below the warn threshold.
func Banner(limit *ratelimit.RateLimit, cfg *config.SafetyConfig) string {
	if limit == nil || !ratelimit.ShouldWarn(*limit, cfg) {
		return ""
	}
	msg := fmt.Sprintf("⚠ GitHub %s quota low: %d/%d remaining, resets at %s",
		limit.Resource, limit.Remaining, limit.Limit, limit.Reset.Local().Format(time.TimeOnly))
	if ratelimit.ShouldBlock(*limit, cfg) {
		msg += " (below block threshold)"
	}
	return msg
}

// WriteBanner prints Banner to w when there is something to say.
func WriteBanner(w io.Writer, limit *ratelimit.RateLimit, cfg *config.SafetyConfig) {
	if b := Banner(limit, cfg); b != "" {
		fmt.Fprintln(w, b)
	}
}
