package github

import (
	"context"
	"errors"
	"fmt"
)

// MaxBulk caps how many issues a single bulk operation may touch.
const MaxBulk = 100

// BulkResult reports per-issue outcomes of a bulk operation.
type BulkResult struct {
	Matched   []int          `json:"matched"`
	Succeeded []int          `json:"succeeded"`
	Failed    map[int]string `json:"failed,omitempty"`
	DryRun    bool           `json:"dry_run"`
}

// Err joins per-issue failures, or nil if all succeeded.
func (r *BulkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var errs []error
	for _, n := range r.Matched {
		if msg, ok := r.Failed[n]; ok {
			errs = append(errs, fmt.Errorf("#%d: %s", n, msg))
		}
	}
	return errors.Join(errs...)
}

// BulkClose closes every open issue carrying label, up to limit (≤ MaxBulk).
// With dryRun, only the matching issue numbers are returned.
func (c *Client) BulkClose(ctx context.Context, label, reason string, limit int, dryRun bool) (*BulkResult, error) {
	return c.bulk(ctx, label, limit, dryRun, func(n int) error {
		_, err := c.SetIssueState(ctx, n, "closed", reason)
		return err
	})
}

// BulkLabel adds labels to every open issue carrying filter, up to limit.
func (c *Client) BulkLabel(ctx context.Context, filter string, labels []string, limit int, dryRun bool) (*BulkResult, error) {
	if len(labels) == 0 {
		return nil, errors.New("bulk label: no labels to add")
	}
	return c.bulk(ctx, filter, limit, dryRun, func(n int) error {
		_, err := c.AddLabels(ctx, n, labels)
		return err
	})
}

func (c *Client) bulk(ctx context.Context, label string, limit int, dryRun bool, apply func(int) error) (*BulkResult, error) {
	if label == "" {
		return nil, errors.New("bulk operations require a label filter")
	}
	if limit <= 0 || limit > MaxBulk {
		limit = MaxBulk
	}

	issues, err := c.ListIssues(ctx, IssueListOptions{State: "open", Labels: []string{label}, Limit: limit})
	if err != nil {
		return nil, err
	}

	res := &BulkResult{DryRun: dryRun, Matched: []int{}, Succeeded: []int{}}
	for _, is := range issues {
		res.Matched = append(res.Matched, is.Number)
	}
	if dryRun {
		return res, nil
	}

	for _, n := range res.Matched {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := apply(n); err != nil {
			if res.Failed == nil {
				res.Failed = make(map[int]string)
			}
			res.Failed[n] = err.Error()
			continue
		}
		res.Succeeded = append(res.Succeeded, n)
	}
	return res, nil
}
