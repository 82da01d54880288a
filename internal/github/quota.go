package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// FetchQuota returns current quota for every API resource in one call.
// It implements ratelimit.QuotaFetcher.
func (c *Client) FetchQuota(ctx context.Context) (map[string]ratelimit.Quota, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limits: %w", err)
	}

	out := make(map[string]ratelimit.Quota)
	add := func(name string, r *github.Rate) {
		if r == nil {
			return
		}
		out[name] = toQuota(r)
	}
	add("core", limits.Core)
	add("search", limits.Search)
	add("graphql", limits.GraphQL)
	add("integration_manifest", limits.IntegrationManifest)
	add("source_import", limits.SourceImport)
	add("code_scanning_upload", limits.CodeScanningUpload)
	add("actions_runner_registration", limits.ActionsRunnerRegistration)
	add("scim", limits.SCIM)
	return out, nil
}

// toQuota derives used from limit and remaining so the snapshot invariant
// remaining = limit - used always holds.
func toQuota(r *github.Rate) ratelimit.Quota {
	limit := r.Limit
	if limit < 0 {
		limit = 0
	}
	remaining := r.Remaining
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	return ratelimit.Quota{
		Limit:     limit,
		Used:      limit - remaining,
		Remaining: remaining,
		Reset:     r.Reset.Unix(),
	}
}
