package policy

import "sort"

// Operation is the symbolic name of a remote operation.
type Operation string

// Read operations.
const (
	PRList        Operation = "pr_list"
	PRView        Operation = "pr_view"
	PRDiff        Operation = "pr_diff"
	PRChecks      Operation = "pr_checks"
	PRComments    Operation = "pr_comments"
	IssueList     Operation = "issue_list"
	IssueView     Operation = "issue_view"
	IssueComments Operation = "issue_comments"
	RunList       Operation = "run_list"
	RunView       Operation = "run_view"
	ProjectList   Operation = "project_list"
	LabelList     Operation = "label_list"
	RateLimit     Operation = "rate_limit"
)

// Write operations.
const (
	PRCreate     Operation = "pr_create"
	PRComment    Operation = "pr_comment"
	PREdit       Operation = "pr_edit"
	PRReady      Operation = "pr_ready"
	IssueCreate  Operation = "issue_create"
	IssueComment Operation = "issue_comment"
	IssueEdit    Operation = "issue_edit"
	IssueLabel   Operation = "issue_label"
	IssueAssign  Operation = "issue_assign"
	ProjectMove  Operation = "project_move"
	RunRerun     Operation = "run_rerun"
	RunCancel    Operation = "run_cancel"
)

// Destructive operations.
const (
	PRMerge       Operation = "pr_merge"
	PRClose       Operation = "pr_close"
	PRReopen      Operation = "pr_reopen"
	IssueClose    Operation = "issue_close"
	IssueReopen   Operation = "issue_reopen"
	CommentDelete Operation = "comment_delete"
	BranchDelete  Operation = "branch_delete"
	BulkClose     Operation = "bulk_close"
	BulkLabel     Operation = "bulk_label"
)

// registry is the fixed operation table. It is only read after init.
var registry = map[Operation]Tier{
	PRList:        Read,
	PRView:        Read,
	PRDiff:        Read,
	PRChecks:      Read,
	PRComments:    Read,
	IssueList:     Read,
	IssueView:     Read,
	IssueComments: Read,
	RunList:       Read,
	RunView:       Read,
	ProjectList:   Read,
	LabelList:     Read,
	RateLimit:     Read,

	PRCreate:     Write,
	PRComment:    Write,
	PREdit:       Write,
	PRReady:      Write,
	IssueCreate:  Write,
	IssueComment: Write,
	IssueEdit:    Write,
	IssueLabel:   Write,
	IssueAssign:  Write,
	ProjectMove:  Write,
	RunRerun:     Write,
	RunCancel:    Write,

	PRMerge:       Destructive,
	PRClose:       Destructive,
	PRReopen:      Destructive,
	IssueClose:    Destructive,
	IssueReopen:   Destructive,
	CommentDelete: Destructive,
	BranchDelete:  Destructive,
	BulkClose:     Destructive,
	BulkLabel:     Destructive,
}

// DefaultTier is returned for names missing from the registry.
// Fail-closed: never Read.
const DefaultTier = Write

// Tier returns the registered tier of op.
func (op Operation) Tier() Tier {
	return TierOf(string(op))
}

// TierOf returns the tier for a known operation name and DefaultTier for
// anything else. It never fails.
func TierOf(name string) Tier {
	if t, ok := registry[Operation(name)]; ok {
		return t
	}
	return DefaultTier
}

// IsKnown reports whether name is in the registry.
func IsKnown(name string) bool {
	_, ok := registry[Operation(name)]
	return ok
}

// Entry is one row of the registry listing.
type Entry struct {
	Operation Operation `json:"operation"`
	Tier      Tier      `json:"tier"`
}

// Operations returns a copy of the registry sorted by tier, then name.
func Operations() []Entry {
	out := make([]Entry, 0, len(registry))
	for op, t := range registry {
		out = append(out, Entry{Operation: op, Tier: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}
