package alert

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Dispatcher fans out events to matching webhook configurations.
type Dispatcher struct {
	configs []Config
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty; a nil Dispatcher drops every event.
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs, now: time.Now}
}

// Dispatch sends event to every webhook subscribed to its kind, in
// parallel, and waits for all of them. The process is short-lived, so
// deliveries must finish before it exits.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	if event.Timestamp == "" {
		event.Timestamp = d.now().UTC().Format(time.RFC3339)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, cfg := range d.configs {
		if !matches(cfg.Events, event.Kind) {
			continue
		}
		wg.Add(1)
		go func(cfg Config) {
			defer wg.Done()
			if err := Send(ctx, cfg, event); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(cfg)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func matches(events []string, kind string) bool {
	for _, e := range events {
		if e == kind {
			return true
		}
	}
	return false
}
