// Package output renders ghgate records as text tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/ghgate/internal/model"
	"github.com/ppiankov/ghgate/internal/policy"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

// Printer writes records to w, as indented JSON when JSON is set.
type Printer struct {
	w    io.Writer
	JSON bool
}

// New returns a Printer writing to w.
func New(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, JSON: asJSON}
}

// Writer returns the destination writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// WriteJSON writes v as indented JSON followed by a newline.
func (p *Printer) WriteJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PullRequests renders a pull request list.
func (p *Printer) PullRequests(prs []model.PullRequest) error {
	if p.JSON {
		return p.WriteJSON(nonNil(prs))
	}
	t := NewTable(p.w, "#", "TITLE", "AUTHOR", "BRANCH", "STATE").SetMaxWidth(1, 60)
	for _, pr := range prs {
		state := pr.State
		if pr.Draft {
			state += " (draft)"
		}
		t.AddRow(num(pr.Number), pr.Title, pr.Author, pr.Head+" → "+pr.Base, state)
	}
	return t.Render()
}

// PullRequest renders one pull request with its body.
func (p *Printer) PullRequest(pr *model.PullRequest) error {
	if p.JSON {
		return p.WriteJSON(pr)
	}
	fmt.Fprintf(p.w, "#%d %s\n", pr.Number, pr.Title)
	fmt.Fprintf(p.w, "state:   %s\n", pr.State)
	fmt.Fprintf(p.w, "author:  %s\n", pr.Author)
	fmt.Fprintf(p.w, "branch:  %s → %s\n", pr.Head, pr.Base)
	if len(pr.Labels) > 0 {
		fmt.Fprintf(p.w, "labels:  %s\n", strings.Join(pr.Labels, ", "))
	}
	if pr.URL != "" {
		fmt.Fprintf(p.w, "url:     %s\n", pr.URL)
	}
	if pr.Body != "" {
		fmt.Fprintf(p.w, "\n%s\n", pr.Body)
	}
	return nil
}

// Issues renders an issue list.
func (p *Printer) Issues(issues []model.Issue) error {
	if p.JSON {
		return p.WriteJSON(nonNil(issues))
	}
	t := NewTable(p.w, "#", "TITLE", "AUTHOR", "LABELS", "STATE").SetMaxWidth(1, 60)
	for _, is := range issues {
		t.AddRow(num(is.Number), is.Title, is.Author, strings.Join(is.Labels, ","), is.State)
	}
	return t.Render()
}

// Issue renders one issue with its body.
func (p *Printer) Issue(is *model.Issue) error {
	if p.JSON {
		return p.WriteJSON(is)
	}
	fmt.Fprintf(p.w, "#%d %s\n", is.Number, is.Title)
	fmt.Fprintf(p.w, "state:     %s\n", is.State)
	fmt.Fprintf(p.w, "author:    %s\n", is.Author)
	if len(is.Labels) > 0 {
		fmt.Fprintf(p.w, "labels:    %s\n", strings.Join(is.Labels, ", "))
	}
	if len(is.Assignees) > 0 {
		fmt.Fprintf(p.w, "assignees: %s\n", strings.Join(is.Assignees, ", "))
	}
	if is.URL != "" {
		fmt.Fprintf(p.w, "url:       %s\n", is.URL)
	}
	if is.Body != "" {
		fmt.Fprintf(p.w, "\n%s\n", is.Body)
	}
	return nil
}

// Comments renders a conversation.
func (p *Printer) Comments(comments []model.Comment) error {
	if p.JSON {
		return p.WriteJSON(nonNil(comments))
	}
	for i, c := range comments {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%s (%d) %s\n%s\n", c.Author, c.ID, c.CreatedAt.Format(time.DateTime), c.Body)
	}
	return nil
}

// Checks renders check runs.
func (p *Printer) Checks(checks []model.CheckRun) error {
	if p.JSON {
		return p.WriteJSON(nonNil(checks))
	}
	t := NewTable(p.w, "NAME", "STATUS", "CONCLUSION")
	for _, c := range checks {
		t.AddRow(c.Name, c.Status, c.Conclusion)
	}
	return t.Render()
}

// Runs renders workflow runs.
func (p *Printer) Runs(runs []model.WorkflowRun) error {
	if p.JSON {
		return p.WriteJSON(nonNil(runs))
	}
	t := NewTable(p.w, "ID", "WORKFLOW", "BRANCH", "EVENT", "STATUS", "CONCLUSION").SetMaxWidth(1, 40)
	for _, r := range runs {
		t.AddRow(strconv.FormatInt(r.ID, 10), r.Name, r.Branch, r.Event, r.Status, r.Conclusion)
	}
	return t.Render()
}

// Labels renders repository labels.
func (p *Printer) Labels(labels []model.Label) error {
	if p.JSON {
		return p.WriteJSON(nonNil(labels))
	}
	t := NewTable(p.w, "NAME", "COLOR", "DESCRIPTION").SetMaxWidth(2, 60)
	for _, l := range labels {
		t.AddRow(l.Name, l.Color, l.Description)
	}
	return t.Render()
}

// Project renders a board's single-select fields, one row per option.
func (p *Printer) Project(b *model.ProjectBoard) error {
	if p.JSON {
		return p.WriteJSON(b)
	}
	fmt.Fprintf(p.w, "%s (#%d) %s\n", b.Title, b.Number, b.ID)
	t := NewTable(p.w, "FIELD", "FIELD ID", "OPTION", "OPTION ID")
	for _, f := range b.Fields {
		for _, o := range f.Options {
			t.AddRow(f.Name, f.ID, o.Name, o.ID)
		}
	}
	return t.Render()
}

// Tiers renders the operation registry.
func (p *Printer) Tiers(entries []policy.Entry) error {
	if p.JSON {
		return p.WriteJSON(entries)
	}
	t := NewTable(p.w, "OPERATION", "TIER", "NEEDS --write")
	for _, e := range entries {
		needs := "no"
		if e.Tier.RequiresWrite() {
			needs = "yes"
		}
		t.AddRow(string(e.Operation), e.Tier.String(), needs)
	}
	return t.Render()
}

// RateLimits renders quota for every resource, sorted by name.
func (p *Printer) RateLimits(limits map[string]ratelimit.RateLimit) error {
	if p.JSON {
		return p.WriteJSON(limits)
	}
	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)

	t := NewTable(p.w, "RESOURCE", "USED", "REMAINING", "LIMIT", "RESETS")
	for _, name := range names {
		l := limits[name]
		t.AddRow(name, num(l.Used), num(l.Remaining), num(l.Limit), l.Reset.Local().Format(time.TimeOnly))
	}
	return t.Render()
}

func num(n int) string {
	return strconv.Itoa(n)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
