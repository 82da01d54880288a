package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CacheTTL is how long a successful fetch stays fresh.
const CacheTTL = 60 * time.Second

// DefaultResource is the REST API resource checked before list operations.
const DefaultResource = "core"

// QuotaFetcher returns current quota for every resource in one call.
type QuotaFetcher interface {
	FetchQuota(ctx context.Context) (map[string]Quota, error)
}

// QuotaFetcherFunc adapts a function to QuotaFetcher.
type QuotaFetcherFunc func(ctx context.Context) (map[string]Quota, error)

// FetchQuota calls f.
func (f QuotaFetcherFunc) FetchQuota(ctx context.Context) (map[string]Quota, error) {
	return f(ctx)
}

// CacheState is the freshness of the monitor's cache.
type CacheState int

const (
	// Stale means never fetched, or the last successful fetch is CacheTTL or older.
	Stale CacheState = iota
	// Fresh means the last successful fetch is younger than CacheTTL.
	Fresh
)

func (s CacheState) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Monitor caches quota snapshots and answers rate-limit checks.
// It is safe for concurrent use. The clock is read only here.
type Monitor struct {
	fetcher QuotaFetcher
	now     func() time.Time
	ttl     time.Duration
	onError func(error)

	mu        sync.Mutex
	cache     map[string]RateLimit
	fetchedAt time.Time
	hasCache  bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithTTL overrides CacheTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Monitor) { m.ttl = ttl }
}

// WithErrorHook registers fn to receive fetch failures and malformed
// resources, which Get otherwise downgrades to "no information" silently.
// fn runs with the monitor locked and must not call back into it.
func WithErrorHook(fn func(error)) Option {
	return func(m *Monitor) { m.onError = fn }
}

// NewMonitor creates a Monitor backed by fetcher.
func NewMonitor(fetcher QuotaFetcher, opts ...Option) *Monitor {
	m := &Monitor{
		fetcher: fetcher,
		now:     time.Now,
		ttl:     CacheTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports cache freshness at the current time.
func (m *Monitor) State() CacheState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Monitor) stateLocked() CacheState {
	if m.hasCache && m.now().Sub(m.fetchedAt) < m.ttl {
		return Fresh
	}
	return Stale
}

// Get returns quota for all resources.
// A fresh cache is returned without a remote call unless force is set.
// When the fetch fails, the previous cache (even if stale) is returned,
// or an empty map if there never was one. Get never returns an error:
// quota checks are advisory.
func (m *Monitor) Get(ctx context.Context, force bool) map[string]RateLimit {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force && m.stateLocked() == Fresh {
		return copyLimits(m.cache)
	}

	raw, err := m.fetcher.FetchQuota(ctx)
	if err != nil {
		m.report(fmt.Errorf("fetch quota: %w", err))
		if m.hasCache {
			return copyLimits(m.cache)
		}
		return map[string]RateLimit{}
	}

	limits := make(map[string]RateLimit, len(raw))
	for name, q := range raw {
		rl, err := FromQuota(name, q)
		if err != nil {
			m.report(err) // malformed resource: no information
			continue
		}
		limits[name] = rl
	}

	m.cache = limits
	m.fetchedAt = m.now()
	m.hasCache = true
	return copyLimits(limits)
}

func (m *Monitor) report(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

// Check looks up resource in the (possibly cached) quota.
// Returns nil, nil when nothing is known about the resource.
// Returns *RateExhaustedError when remaining quota is zero.
func (m *Monitor) Check(ctx context.Context, resource string) (*RateLimit, error) {
	limits := m.Get(ctx, false)
	rl, ok := limits[resource]
	if !ok {
		return nil, nil
	}
	if rl.IsExhausted() {
		return &rl, &RateExhaustedError{Limit: rl}
	}
	return &rl, nil
}

func copyLimits(src map[string]RateLimit) map[string]RateLimit {
	out := make(map[string]RateLimit, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
