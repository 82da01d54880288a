package ratelimit

import (
	"fmt"
	"time"
)

// RateExhaustedError is returned when a resource has no remaining quota.
// The only remedy is waiting until Limit.Reset.
type RateExhaustedError struct {
	Limit RateLimit
}

func (e *RateExhaustedError) Error() string {
	return fmt.Sprintf("rate limit exhausted for %s: 0/%d remaining, resets at %s",
		e.Limit.Resource, e.Limit.Limit, e.Limit.Reset.Format(time.RFC3339))
}

// ThresholdError is returned by Enforce when hard blocking is enabled and
// remaining quota is below the block threshold.
type ThresholdError struct {
	Limit     RateLimit
	Threshold int
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("remaining quota for %s (%d/%d) is below block_threshold %d, resets at %s",
		e.Limit.Resource, e.Limit.Remaining, e.Limit.Limit, e.Threshold,
		e.Limit.Reset.Format(time.RFC3339))
}
