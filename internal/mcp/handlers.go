package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/ghgate/internal/policy"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// CheckInput defines parameters for the ghgate_check tool.
type CheckInput struct {
	Operation string `json:"operation" jsonschema:"operation name such as pr_merge or issue_list"`
	Write     bool   `json:"write,omitempty" jsonschema:"whether the caller would pass --write"`
}

// CheckOutput contains the gate decision.
type CheckOutput struct {
	Operation  string `json:"operation"`
	Tier       string `json:"tier"`
	Known      bool   `json:"known"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// TiersInput optionally filters the listing by tier.
type TiersInput struct {
	Tier string `json:"tier,omitempty" jsonschema:"only list operations of this tier (read/write/destructive)"`
}

// TiersOutput lists registry entries.
type TiersOutput struct {
	Operations []TierItem `json:"operations"`
}

// TierItem is one operation and its tier.
type TierItem struct {
	Operation string `json:"operation"`
	Tier      string `json:"tier"`
}

// RateLimitInput selects the resource to report.
type RateLimitInput struct {
	Resource string `json:"resource,omitempty" jsonschema:"quota resource (core/search/graphql), default core"`
	Refresh  bool   `json:"refresh,omitempty" jsonschema:"bypass the 60 second cache"`
}

// RateLimitOutput reports quota for one resource.
type RateLimitOutput struct {
	Resource  string `json:"resource"`
	Known     bool   `json:"known"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Reset     string `json:"reset,omitempty"`
	Warn      bool   `json:"warn"`
	Block     bool   `json:"block"`
	Exhausted bool   `json:"exhausted"`
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	if input.Operation == "" {
		return nil, CheckOutput{}, errors.New("operation is required")
	}

	out := CheckOutput{
		Operation: input.Operation,
		Tier:      policy.TierOf(input.Operation).String(),
		Known:     policy.IsKnown(input.Operation),
		Allowed:   true,
	}

	err := policy.Check(input.Operation, input.Write, s.cfg)
	if err == nil {
		return nil, out, nil
	}
	var v *policy.SafetyViolation
	if !errors.As(err, &v) {
		return nil, CheckOutput{}, err
	}
	out.Allowed = false
	out.Reason = v.Message
	out.Suggestion = v.Suggestion
	return nil, out, nil
}

func (s *Server) handleTiers(ctx context.Context, req *mcpsdk.CallToolRequest, input TiersInput) (*mcpsdk.CallToolResult, TiersOutput, error) {
	var filter policy.Tier
	if input.Tier != "" {
		t, ok := policy.ParseTier(input.Tier)
		if !ok {
			return nil, TiersOutput{}, fmt.Errorf("unknown tier %q", input.Tier)
		}
		filter = t
	}

	out := TiersOutput{Operations: []TierItem{}}
	for _, e := range policy.Operations() {
		if input.Tier != "" && e.Tier != filter {
			continue
		}
		out.Operations = append(out.Operations, TierItem{Operation: string(e.Operation), Tier: e.Tier.String()})
	}
	return nil, out, nil
}

func (s *Server) handleRateLimit(ctx context.Context, req *mcpsdk.CallToolRequest, input RateLimitInput) (*mcpsdk.CallToolResult, RateLimitOutput, error) {
	resource := input.Resource
	if resource == "" {
		resource = ratelimit.DefaultResource
	}
	out := RateLimitOutput{Resource: resource}
	if s.monitor == nil {
		return nil, out, nil
	}

	limit, ok := s.monitor.Get(ctx, input.Refresh)[resource]
	if !ok {
		return nil, out, nil
	}
	out.Known = true
	out.Limit = limit.Limit
	out.Used = limit.Used
	out.Remaining = limit.Remaining
	out.Reset = limit.Reset.UTC().Format(time.RFC3339)
	out.Warn = ratelimit.ShouldWarn(limit, s.cfg)
	out.Block = ratelimit.ShouldBlock(limit, s.cfg)
	out.Exhausted = limit.IsExhausted()
	return nil, out, nil
}
