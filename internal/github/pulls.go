package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/model"
)

const perPage = 100

// PullListOptions filters ListPulls.
type PullListOptions struct {
	State string // open, closed, all
	Base  string
	Head  string
	Limit int
}

// ListPulls lists pull requests, following pagination up to Limit.
func (c *Client) ListPulls(ctx context.Context, opts PullListOptions) ([]model.PullRequest, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	ghOpts := &github.PullRequestListOptions{
		State:       opts.State,
		Base:        opts.Base,
		Head:        opts.Head,
		ListOptions: github.ListOptions{PerPage: pageSize(opts.Limit)},
	}

	var out []model.PullRequest
	for {
		pulls, resp, err := c.gh.PullRequests.List(ctx, c.repo.Owner, c.repo.Name, ghOpts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests: %w", err)
		}
		for _, pr := range pulls {
			out = append(out, toPullRequest(pr))
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

// GetPull fetches one pull request.
func (c *Client) GetPull(ctx context.Context, number int) (*model.PullRequest, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	out := toPullRequest(pr)
	return &out, nil
}

// PullDiff returns the unified diff of a pull request.
func (c *Client) PullDiff(ctx context.Context, number int) (string, error) {
	if err := c.requireRepo(); err != nil {
		return "", err
	}
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, c.repo.Owner, c.repo.Name, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("get diff for #%d: %w", number, err)
	}
	return diff, nil
}

// PullChecks lists check runs on the head commit of a pull request.
func (c *Client) PullChecks(ctx context.Context, number int) ([]model.CheckRun, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	sha := pr.GetHead().GetSHA()

	opts := &github.ListCheckRunsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var out []model.CheckRun
	for {
		res, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, c.repo.Owner, c.repo.Name, sha, opts)
		if err != nil {
			return nil, fmt.Errorf("list checks for %s: %w", sha, err)
		}
		for _, cr := range res.CheckRuns {
			out = append(out, model.CheckRun{
				Name:       cr.GetName(),
				Status:     cr.GetStatus(),
				Conclusion: cr.GetConclusion(),
				URL:        cr.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// NewPull describes a pull request to open.
type NewPull struct {
	Title  string
	Head   string
	Base   string
	Body   string
	Draft  bool
	Labels []string
}

// CreatePull opens a pull request and applies labels.
func (c *Client) CreatePull(ctx context.Context, in NewPull) (*model.PullRequest, error) {
	var created *github.PullRequest
	err := c.mutate(ctx, "create pull request", func() error {
		var err error
		created, _, err = c.gh.PullRequests.Create(ctx, c.repo.Owner, c.repo.Name, &github.NewPullRequest{
			Title: github.String(in.Title),
			Head:  github.String(in.Head),
			Base:  github.String(in.Base),
			Body:  github.String(in.Body),
			Draft: github.Bool(in.Draft),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(in.Labels) > 0 {
		if _, err := c.AddLabels(ctx, created.GetNumber(), in.Labels); err != nil {
			return nil, err
		}
	}
	out := toPullRequest(created)
	out.Labels = append(out.Labels, in.Labels...)
	return &out, nil
}

// PullEdit holds optional title/body changes. Nil fields are left alone.
type PullEdit struct {
	Title *string
	Body  *string
	Base  *string
}

// EditPull updates title, body or base of a pull request.
func (c *Client) EditPull(ctx context.Context, number int, in PullEdit) (*model.PullRequest, error) {
	patch := &github.PullRequest{Title: in.Title, Body: in.Body}
	if in.Base != nil {
		patch.Base = &github.PullRequestBranch{Ref: in.Base}
	}
	return c.patchPull(ctx, number, "edit pull request", patch)
}

// SetPullState closes (state "closed") or reopens (state "open") a pull request.
func (c *Client) SetPullState(ctx context.Context, number int, state string) (*model.PullRequest, error) {
	return c.patchPull(ctx, number, "set pull request state", &github.PullRequest{State: github.String(state)})
}

func (c *Client) patchPull(ctx context.Context, number int, what string, patch *github.PullRequest) (*model.PullRequest, error) {
	var updated *github.PullRequest
	err := c.mutate(ctx, fmt.Sprintf("%s #%d", what, number), func() error {
		var err error
		updated, _, err = c.gh.PullRequests.Edit(ctx, c.repo.Owner, c.repo.Name, number, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toPullRequest(updated)
	return &out, nil
}

// MergeOptions controls MergePull.
type MergeOptions struct {
	Method        string // merge, squash, rebase
	CommitTitle   string
	CommitMessage string
	SHA           string // optional head SHA guard
}

// MergePull merges a pull request.
func (c *Client) MergePull(ctx context.Context, number int, opts MergeOptions) (*model.MergeResult, error) {
	var res *github.PullRequestMergeResult
	err := c.mutate(ctx, fmt.Sprintf("merge pull request #%d", number), func() error {
		var err error
		res, _, err = c.gh.PullRequests.Merge(ctx, c.repo.Owner, c.repo.Name, number, opts.CommitMessage,
			&github.PullRequestOptions{
				CommitTitle: opts.CommitTitle,
				SHA:         opts.SHA,
				MergeMethod: opts.Method,
			})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &model.MergeResult{Merged: res.GetMerged(), SHA: res.GetSHA(), Message: res.GetMessage()}, nil
}

// MarkReady converts a draft pull request to ready for review. REST cannot
// do this, so it goes through the GraphQL mutation.
func (c *Client) MarkReady(ctx context.Context, number int) error {
	if err := c.requireRepo(); err != nil {
		return err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return fmt.Errorf("get pull request #%d: %w", number, err)
	}
	if !pr.GetDraft() {
		return nil
	}

	payload := map[string]any{
		"query":     `mutation($id: ID!) { markPullRequestReadyForReview(input: {pullRequestId: $id}) { pullRequest { isDraft } } }`,
		"variables": map[string]any{"id": pr.GetNodeID()},
	}
	return c.mutate(ctx, fmt.Sprintf("mark #%d ready", number), func() error {
		return c.graphql(ctx, payload, nil)
	})
}

// graphql posts a query or mutation and decodes its "data" member into
// out, which may be nil. GraphQL reports failures in "errors" with a 200.
func (c *Client) graphql(ctx context.Context, payload map[string]any, out any) error {
	req, err := c.gh.NewRequest(http.MethodPost, c.graphqlURL, payload)
	if err != nil {
		return err
	}
	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if _, err := c.gh.Do(ctx, req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("graphql: %s", resp.Errors[0].Message)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}

func pageSize(limit int) int {
	if limit > 0 && limit < perPage {
		return limit
	}
	return perPage
}
