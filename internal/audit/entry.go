package audit

// Decisions recorded in Entry.Decision.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Entry is one gate decision in the hash-chained JSONL audit log.
// Only plain fields, so json.Marshal output is stable for hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	Repo      string `json:"repo,omitempty"`
	Operation string `json:"operation"`
	Tier      string `json:"tier"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Target    string `json:"target,omitempty"`
	Agent     bool   `json:"agent"`
	PrevHash  string `json:"prev_hash"`
}
