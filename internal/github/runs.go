package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/model"
)

// RunListOptions filters ListRuns.
type RunListOptions struct {
	Branch string
	Status string
	Event  string
	Limit  int
}

// ListRuns lists workflow runs for the repository, newest first.
func (c *Client) ListRuns(ctx context.Context, opts RunListOptions) ([]model.WorkflowRun, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	ghOpts := &github.ListWorkflowRunsOptions{
		Branch:      opts.Branch,
		Status:      opts.Status,
		Event:       opts.Event,
		ListOptions: github.ListOptions{PerPage: pageSize(opts.Limit)},
	}

	var out []model.WorkflowRun
	for {
		runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, c.repo.Owner, c.repo.Name, ghOpts)
		if err != nil {
			return nil, fmt.Errorf("list workflow runs: %w", err)
		}
		for _, r := range runs.WorkflowRuns {
			out = append(out, toWorkflowRun(r))
			if opts.Limit > 0 && len(out) >= opts.Limit {
				return out, nil
			}
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		ghOpts.Page = resp.NextPage
	}
}

// GetRun fetches one workflow run.
func (c *Client) GetRun(ctx context.Context, runID int64) (*model.WorkflowRun, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	r, _, err := c.gh.Actions.GetWorkflowRunByID(ctx, c.repo.Owner, c.repo.Name, runID)
	if err != nil {
		return nil, fmt.Errorf("get workflow run %d: %w", runID, err)
	}
	out := toWorkflowRun(r)
	return &out, nil
}

// RerunRun re-runs every job of a workflow run.
func (c *Client) RerunRun(ctx context.Context, runID int64) error {
	return c.mutate(ctx, fmt.Sprintf("rerun workflow run %d", runID), func() error {
		_, err := c.gh.Actions.RerunWorkflowByID(ctx, c.repo.Owner, c.repo.Name, runID)
		return err
	})
}

// CancelRun requests cancellation of a workflow run.
func (c *Client) CancelRun(ctx context.Context, runID int64) error {
	return c.mutate(ctx, fmt.Sprintf("cancel workflow run %d", runID), func() error {
		_, err := c.gh.Actions.CancelWorkflowRunByID(ctx, c.repo.Owner, c.repo.Name, runID)
		return err
	})
}
