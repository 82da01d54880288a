package ratelimit

import "github.com/ppiankov/ghgate/internal/config"

// ShouldWarn reports whether remaining quota is below the warn threshold.
func ShouldWarn(limit RateLimit, cfg *config.SafetyConfig) bool {
	return limit.Remaining < cfg.WarnThreshold
}

// ShouldBlock reports whether remaining quota is below the block threshold.
// Because config validation keeps block < warn, ShouldBlock implies ShouldWarn.
func ShouldBlock(limit RateLimit, cfg *config.SafetyConfig) bool {
	return limit.Remaining < cfg.BlockThreshold
}

// Enforce turns a snapshot into a go/no-go decision for callers.
// A nil snapshot (no information) always passes. Exhaustion always fails.
// The block threshold is a hard stop only when cfg.HardBlock is set.
func Enforce(limit *RateLimit, cfg *config.SafetyConfig) error {
	if limit == nil {
		return nil
	}
	if limit.IsExhausted() {
		return &RateExhaustedError{Limit: *limit}
	}
	if cfg.HardBlock && ShouldBlock(*limit, cfg) {
		return &ThresholdError{Limit: *limit, Threshold: cfg.BlockThreshold}
	}
	return nil
}
