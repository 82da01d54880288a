package ratelimit

import (
	"fmt"
	"time"
)

// LowWaterMark is the fixed remaining-quota level below which IsLow is true,
// independent of any configured warn threshold.
const LowWaterMark = 100

// Quota is the raw per-resource record returned by the remote collaborator.
type Quota struct {
	Limit     int   `json:"limit"`
	Used      int   `json:"used"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // epoch seconds
}

// RateLimit is a validated quota snapshot for one resource.
// Remaining always equals Limit - Used.
type RateLimit struct {
	Resource  string    `json:"resource"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// FromQuota validates q and builds a snapshot for resource.
func FromQuota(resource string, q Quota) (RateLimit, error) {
	if q.Limit < 0 {
		return RateLimit{}, fmt.Errorf("%s: negative limit %d", resource, q.Limit)
	}
	if q.Used < 0 || q.Used > q.Limit {
		return RateLimit{}, fmt.Errorf("%s: used %d outside [0, %d]", resource, q.Used, q.Limit)
	}
	if q.Remaining != q.Limit-q.Used {
		return RateLimit{}, fmt.Errorf("%s: remaining %d != limit %d - used %d",
			resource, q.Remaining, q.Limit, q.Used)
	}
	return RateLimit{
		Resource:  resource,
		Limit:     q.Limit,
		Used:      q.Used,
		Remaining: q.Remaining,
		Reset:     time.Unix(q.Reset, 0).UTC(),
	}, nil
}

// IsLow reports whether remaining quota is under LowWaterMark.
func (r RateLimit) IsLow() bool {
	return r.Remaining < LowWaterMark
}

// IsExhausted reports whether no quota remains.
func (r RateLimit) IsExhausted() bool {
	return r.Remaining == 0
}
