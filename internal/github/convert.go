package github

import (
	"github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/model"
)

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

func toPullRequest(pr *github.PullRequest) model.PullRequest {
	return model.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		Author:    pr.GetUser().GetLogin(),
		Head:      pr.GetHead().GetRef(),
		Base:      pr.GetBase().GetRef(),
		Draft:     pr.GetDraft(),
		Merged:    pr.GetMerged(),
		Mergeable: pr.Mergeable,
		Labels:    labelNames(pr.Labels),
		Body:      pr.GetBody(),
		URL:       pr.GetHTMLURL(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}

func toIssue(is *github.Issue) model.Issue {
	assignees := make([]string, 0, len(is.Assignees))
	for _, u := range is.Assignees {
		assignees = append(assignees, u.GetLogin())
	}
	return model.Issue{
		Number:    is.GetNumber(),
		Title:     is.GetTitle(),
		State:     is.GetState(),
		Author:    is.GetUser().GetLogin(),
		Labels:    labelNames(is.Labels),
		Assignees: assignees,
		Comments:  is.GetComments(),
		Body:      is.GetBody(),
		URL:       is.GetHTMLURL(),
		CreatedAt: is.GetCreatedAt().Time,
		UpdatedAt: is.GetUpdatedAt().Time,
	}
}

func toComment(c *github.IssueComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		Author:    c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		URL:       c.GetHTMLURL(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func toWorkflowRun(r *github.WorkflowRun) model.WorkflowRun {
	return model.WorkflowRun{
		ID:         r.GetID(),
		Name:       r.GetName(),
		Branch:     r.GetHeadBranch(),
		Event:      r.GetEvent(),
		Status:     r.GetStatus(),
		Conclusion: r.GetConclusion(),
		HeadSHA:    r.GetHeadSHA(),
		Attempt:    r.GetRunAttempt(),
		URL:        r.GetHTMLURL(),
		CreatedAt:  r.GetCreatedAt().Time,
	}
}
