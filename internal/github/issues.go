package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/model"
)

// IssueListOptions filters ListIssues.
type IssueListOptions struct {
	State  string // open, closed, all
	Labels []string
	Limit  int
}

// ListIssues lists issues, skipping pull requests, up to Limit.
func (c *Client) ListIssues(ctx context.Context, opts IssueListOptions) ([]model.Issue, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	ghOpts := &github.IssueListByRepoOptions{
		State:       opts.State,
		Labels:      opts.Labels,
		ListOptions: github.ListOptions{PerPage: pageSize(opts.Limit)},
	}

	var out []model.Issue
	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, c.repo.Owner, c.repo.Name, ghOpts)
		if err != nil {
			return nil, fmt.Errorf("list issues: %w", err)
		}
		for _, is := range issues {
			if is.IsPullRequest() {
				continue
			}
			out = append(out, toIssue(is))
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

// GetIssue fetches one issue.
func (c *Client) GetIssue(ctx context.Context, number int) (*model.Issue, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	is, _, err := c.gh.Issues.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", number, err)
	}
	out := toIssue(is)
	return &out, nil
}

// ListComments lists conversation comments on an issue or pull request.
func (c *Client) ListComments(ctx context.Context, number int) ([]model.Comment, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	var out []model.Comment
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, c.repo.Owner, c.repo.Name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments on #%d: %w", number, err)
		}
		for _, cm := range comments {
			out = append(out, toComment(cm))
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// NewIssue describes an issue to open.
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, in NewIssue) (*model.Issue, error) {
	req := &github.IssueRequest{
		Title: github.String(in.Title),
		Body:  github.String(in.Body),
	}
	if len(in.Labels) > 0 {
		req.Labels = &in.Labels
	}
	if len(in.Assignees) > 0 {
		req.Assignees = &in.Assignees
	}

	var created *github.Issue
	err := c.mutate(ctx, "create issue", func() error {
		var err error
		created, _, err = c.gh.Issues.Create(ctx, c.repo.Owner, c.repo.Name, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toIssue(created)
	return &out, nil
}

// Comment posts a conversation comment on an issue or pull request.
func (c *Client) Comment(ctx context.Context, number int, body string) (*model.Comment, error) {
	var created *github.IssueComment
	err := c.mutate(ctx, fmt.Sprintf("comment on #%d", number), func() error {
		var err error
		created, _, err = c.gh.Issues.CreateComment(ctx, c.repo.Owner, c.repo.Name, number,
			&github.IssueComment{Body: github.String(body)})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toComment(created)
	return &out, nil
}

// DeleteComment removes a conversation comment by ID.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.mutate(ctx, fmt.Sprintf("delete comment %d", commentID), func() error {
		_, err := c.gh.Issues.DeleteComment(ctx, c.repo.Owner, c.repo.Name, commentID)
		return err
	})
}

// IssueEdit holds optional title/body changes. Nil fields are left alone.
type IssueEdit struct {
	Title *string
	Body  *string
}

// EditIssue updates title or body of an issue.
func (c *Client) EditIssue(ctx context.Context, number int, in IssueEdit) (*model.Issue, error) {
	return c.patchIssue(ctx, number, "edit issue", &github.IssueRequest{Title: in.Title, Body: in.Body})
}

// SetIssueState closes (state "closed") or reopens (state "open") an issue.
// reason is optional: completed, not_planned, reopened.
func (c *Client) SetIssueState(ctx context.Context, number int, state, reason string) (*model.Issue, error) {
	req := &github.IssueRequest{State: github.String(state)}
	if reason != "" {
		req.StateReason = github.String(reason)
	}
	return c.patchIssue(ctx, number, "set issue state", req)
}

func (c *Client) patchIssue(ctx context.Context, number int, what string, req *github.IssueRequest) (*model.Issue, error) {
	var updated *github.Issue
	err := c.mutate(ctx, fmt.Sprintf("%s #%d", what, number), func() error {
		var err error
		updated, _, err = c.gh.Issues.Edit(ctx, c.repo.Owner, c.repo.Name, number, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toIssue(updated)
	return &out, nil
}

// AddLabels adds labels to an issue or pull request and returns the full set.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) ([]string, error) {
	var got []*github.Label
	err := c.mutate(ctx, fmt.Sprintf("label #%d", number), func() error {
		var err error
		got, _, err = c.gh.Issues.AddLabelsToIssue(ctx, c.repo.Owner, c.repo.Name, number, labels)
		return err
	})
	if err != nil {
		return nil, err
	}
	return labelNames(got), nil
}

// Assign adds assignees to an issue or pull request.
func (c *Client) Assign(ctx context.Context, number int, logins []string) (*model.Issue, error) {
	var updated *github.Issue
	err := c.mutate(ctx, fmt.Sprintf("assign #%d", number), func() error {
		var err error
		updated, _, err = c.gh.Issues.AddAssignees(ctx, c.repo.Owner, c.repo.Name, number, logins)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := toIssue(updated)
	return &out, nil
}

// ListLabels lists repository labels.
func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	if err := c.requireRepo(); err != nil {
		return nil, err
	}
	opts := &github.ListOptions{PerPage: perPage}

	var out []model.Label
	for {
		labels, resp, err := c.gh.Issues.ListLabels(ctx, c.repo.Owner, c.repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("list labels: %w", err)
		}
		for _, l := range labels {
			out = append(out, model.Label{Name: l.GetName(), Color: l.GetColor(), Description: l.GetDescription()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// DeleteBranch deletes refs/heads/<branch>.
func (c *Client) DeleteBranch(ctx context.Context, branch string) error {
	return c.mutate(ctx, fmt.Sprintf("delete branch %s", branch), func() error {
		_, err := c.gh.Git.DeleteRef(ctx, c.repo.Owner, c.repo.Name, "heads/"+branch)
		return err
	})
}
