package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/ghgate/internal/config"
	"github.com/ppiankov/ghgate/internal/model"
)

var resetT = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	data  map[string]Quota
	err   error
}

func (f *fakeFetcher) FetchQuota(ctx context.Context) (map[string]Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]Quota, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out, nil
}

func (f *fakeFetcher) set(data map[string]Quota, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	f.err = err
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func quota(limit, used int) Quota {
	return Quota{Limit: limit, Used: used, Remaining: limit - used, Reset: resetT.Unix()}
}

func newTestMonitor(data map[string]Quota) (*Monitor, *fakeFetcher, *fakeClock) {
	f := &fakeFetcher{data: data}
	clk := &fakeClock{t: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
	return NewMonitor(f, WithClock(clk.now)), f, clk
}

func testConfig(t *testing.T, warn, block int) *config.SafetyConfig {
	t.Helper()
	cfg, err := config.New(model.Repo{Owner: "octo", Name: "hello"}, warn, block)
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}
	return cfg
}

// --- Snapshot tests ---

func TestFromQuotaValid(t *testing.T) {
	rl, err := FromQuota("core", quota(5000, 4950))
	if err != nil {
		t.Fatalf("FromQuota: %v", err)
	}
	want := RateLimit{Resource: "core", Limit: 5000, Used: 4950, Remaining: 50, Reset: resetT}
	if diff := cmp.Diff(want, rl); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if rl.Remaining != rl.Limit-rl.Used {
		t.Error("remaining must equal limit - used")
	}
}

func TestFromQuotaRejectsInconsistentData(t *testing.T) {
	tests := []Quota{
		{Limit: -1, Used: 0, Remaining: -1},
		{Limit: 10, Used: -1, Remaining: 11},
		{Limit: 10, Used: 11, Remaining: -1},
		{Limit: 10, Used: 3, Remaining: 5},
	}
	for _, q := range tests {
		if _, err := FromQuota("core", q); err == nil {
			t.Errorf("FromQuota(%+v) expected error", q)
		}
	}
}

func TestIsLowAndIsExhausted(t *testing.T) {
	tests := []struct {
		remaining int
		low       bool
		exhausted bool
	}{
		{0, true, true},
		{1, true, false},
		{99, true, false},
		{100, false, false},
		{5000, false, false},
	}
	for _, tt := range tests {
		rl, err := FromQuota("core", quota(5000, 5000-tt.remaining))
		if err != nil {
			t.Fatal(err)
		}
		if rl.IsLow() != tt.low {
			t.Errorf("remaining=%d IsLow=%v, want %v", tt.remaining, rl.IsLow(), tt.low)
		}
		if rl.IsExhausted() != tt.exhausted {
			t.Errorf("remaining=%d IsExhausted=%v, want %v", tt.remaining, rl.IsExhausted(), tt.exhausted)
		}
	}
}

// --- Predicate tests ---

func TestShouldWarnAndShouldBlock(t *testing.T) {
	cfg := testConfig(t, 100, 10)
	tests := []struct {
		remaining   int
		warn, block bool
	}{
		{500, false, false},
		{100, false, false},
		{99, true, false},
		{10, true, false},
		{9, true, true},
		{0, true, true},
	}
	for _, tt := range tests {
		rl := RateLimit{Resource: "core", Limit: 5000, Used: 5000 - tt.remaining, Remaining: tt.remaining}
		if got := ShouldWarn(rl, cfg); got != tt.warn {
			t.Errorf("remaining=%d ShouldWarn=%v, want %v", tt.remaining, got, tt.warn)
		}
		if got := ShouldBlock(rl, cfg); got != tt.block {
			t.Errorf("remaining=%d ShouldBlock=%v, want %v", tt.remaining, got, tt.block)
		}
	}
}

func TestShouldBlockImpliesShouldWarn(t *testing.T) {
	cfg := testConfig(t, 250, 50)
	for remaining := 0; remaining <= 300; remaining++ {
		rl := RateLimit{Resource: "core", Limit: 5000, Used: 5000 - remaining, Remaining: remaining}
		if ShouldBlock(rl, cfg) && !ShouldWarn(rl, cfg) {
			t.Fatalf("remaining=%d: block without warn", remaining)
		}
	}
}

func TestLowQuotaWarnsWithoutExhaustion(t *testing.T) {
	cfg := testConfig(t, 100, 10)
	rl, err := FromQuota("core", Quota{Limit: 5000, Used: 4950, Remaining: 50, Reset: resetT.Unix()})
	if err != nil {
		t.Fatal(err)
	}
	if !ShouldWarn(rl, cfg) {
		t.Error("expected ShouldWarn for 50 remaining with threshold 100")
	}
	if rl.IsExhausted() {
		t.Error("50 remaining must not be exhausted")
	}
}

// --- Monitor cache tests ---

func TestGetCachesWithinTTL(t *testing.T) {
	m, f, clk := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	if m.State() != Stale {
		t.Fatal("new monitor should be stale")
	}
	first := m.Get(ctx, false)
	if f.count() != 1 {
		t.Fatalf("expected 1 fetch, got %d", f.count())
	}
	if m.State() != Fresh {
		t.Fatal("expected fresh after fetch")
	}

	f.set(map[string]Quota{"core": quota(5000, 4000)}, nil)
	clk.advance(59 * time.Second)
	second := m.Get(ctx, false)
	if f.count() != 1 {
		t.Fatalf("expected cached result, got %d fetches", f.count())
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached data changed (-first +second):\n%s", diff)
	}
}

func TestGetRefetchesWhenStale(t *testing.T) {
	m, f, clk := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	m.Get(ctx, false)
	clk.advance(CacheTTL)
	if m.State() != Stale {
		t.Fatal("expected stale at exactly TTL")
	}
	f.set(map[string]Quota{"core": quota(5000, 20)}, nil)

	got := m.Get(ctx, false)
	if f.count() != 2 {
		t.Fatalf("expected 2 fetches, got %d", f.count())
	}
	if got["core"].Used != 20 {
		t.Errorf("expected refreshed data, got used=%d", got["core"].Used)
	}
}

func TestGetForceAlwaysFetches(t *testing.T) {
	m, f, _ := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	m.Get(ctx, false)
	m.Get(ctx, true)
	m.Get(ctx, true)
	if f.count() != 3 {
		t.Fatalf("expected 3 fetches, got %d", f.count())
	}
}

func TestGetFailureWithoutCacheReturnsEmpty(t *testing.T) {
	m, f, _ := newTestMonitor(nil)
	f.set(nil, errors.New("connection refused"))

	got := m.Get(context.Background(), false)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", got)
	}
	if m.State() != Stale {
		t.Error("failed fetch must not mark cache fresh")
	}
}

func TestGetFailurePreservesStaleCache(t *testing.T) {
	m, f, clk := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	first := m.Get(ctx, false)
	clk.advance(2 * CacheTTL)
	f.set(nil, errors.New("502 bad gateway"))

	got := m.Get(ctx, true)
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("expected stale cache on failure (-want +got):\n%s", diff)
	}
	if m.State() != Stale {
		t.Error("state should remain stale after failed refresh")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	got := m.Get(ctx, false)
	delete(got, "core")
	again := m.Get(ctx, false)
	if _, ok := again["core"]; !ok {
		t.Fatal("caller mutation leaked into cache")
	}
}

func TestGetSkipsMalformedResources(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{
		"core":   quota(5000, 10),
		"broken": {Limit: 10, Used: 2, Remaining: 3},
	})
	got := m.Get(context.Background(), false)
	if _, ok := got["broken"]; ok {
		t.Error("malformed resource should be dropped")
	}
	if _, ok := got["core"]; !ok {
		t.Error("valid resource missing")
	}
}

func TestErrorHookReceivesFailures(t *testing.T) {
	f := &fakeFetcher{data: map[string]Quota{
		"core":   quota(5000, 10),
		"broken": {Limit: 10, Used: 2, Remaining: 3},
	}}
	var errs []error
	m := NewMonitor(f, WithErrorHook(func(err error) { errs = append(errs, err) }))
	ctx := context.Background()

	m.Get(ctx, true)
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "broken") {
		t.Fatalf("expected malformed resource report, got %v", errs)
	}

	f.set(nil, errors.New("connection refused"))
	got := m.Get(ctx, true)
	if len(errs) != 2 || !strings.Contains(errs[1].Error(), "connection refused") {
		t.Fatalf("expected fetch failure report, got %v", errs)
	}
	if _, ok := got["core"]; !ok {
		t.Error("hook must not change the stale fallback")
	}
}

// --- Check tests ---

func TestCheckUnknownResource(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	rl, err := m.Check(context.Background(), "graphql")
	if rl != nil || err != nil {
		t.Fatalf("expected nil, nil for unknown resource, got %v, %v", rl, err)
	}
}

func TestCheckCollaboratorDown(t *testing.T) {
	m, f, _ := newTestMonitor(nil)
	f.set(nil, errors.New("dial tcp: timeout"))
	rl, err := m.Check(context.Background(), DefaultResource)
	if rl != nil || err != nil {
		t.Fatalf("expected nil, nil when unreachable, got %v, %v", rl, err)
	}
}

func TestCheckReturnsSnapshot(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{"core": quota(5000, 4950)})
	rl, err := m.Check(context.Background(), "core")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rl == nil || rl.Remaining != 50 {
		t.Fatalf("expected remaining=50, got %+v", rl)
	}
}

func TestCheckExhaustedCoreReturnsError(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{
		"core": {Limit: 5000, Used: 5000, Remaining: 0, Reset: resetT.Unix()},
	})
	_, err := m.Check(context.Background(), "core")
	var ex *RateExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected *RateExhaustedError, got %v", err)
	}
	if !ex.Limit.Reset.Equal(resetT) {
		t.Errorf("reset = %v, want %v", ex.Limit.Reset, resetT)
	}
	msg := err.Error()
	if !strings.Contains(msg, "core") || !strings.Contains(msg, resetT.Format(time.RFC3339)) {
		t.Errorf("message %q must name resource and reset time", msg)
	}
}

// --- Enforce tests ---

func TestEnforce(t *testing.T) {
	soft := testConfig(t, 100, 10)
	hard := testConfig(t, 100, 10)
	hard.HardBlock = true

	low := &RateLimit{Resource: "core", Limit: 5000, Used: 4995, Remaining: 5, Reset: resetT}
	empty := &RateLimit{Resource: "core", Limit: 5000, Used: 5000, Remaining: 0, Reset: resetT}
	plenty := &RateLimit{Resource: "core", Limit: 5000, Used: 0, Remaining: 5000, Reset: resetT}

	if err := Enforce(nil, hard); err != nil {
		t.Errorf("nil snapshot: %v", err)
	}
	if err := Enforce(low, soft); err != nil {
		t.Errorf("advisory block threshold should pass, got %v", err)
	}
	var te *ThresholdError
	if err := Enforce(low, hard); !errors.As(err, &te) {
		t.Errorf("expected *ThresholdError, got %v", err)
	} else if te.Threshold != 10 {
		t.Errorf("threshold = %d", te.Threshold)
	}
	var ex *RateExhaustedError
	if err := Enforce(empty, soft); !errors.As(err, &ex) {
		t.Errorf("expected *RateExhaustedError, got %v", err)
	}
	if err := Enforce(plenty, hard); err != nil {
		t.Errorf("plenty of quota: %v", err)
	}
}

func TestMonitorConcurrentAccess(t *testing.T) {
	m, _, _ := newTestMonitor(map[string]Quota{"core": quota(5000, 10)})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(force bool) {
			defer wg.Done()
			m.Get(ctx, force)
			m.Check(ctx, "core")
		}(i%4 == 0)
	}
	wg.Wait()
}
