// Package alert posts gate decisions to operator webhooks.
package alert

// Event kinds a webhook can subscribe to.
const (
	EventDeny        = "deny"        // any gate denial
	EventDestructive = "destructive" // an allowed destructive operation
	EventQuotaLow    = "quota_low"   // remaining quota below warn_threshold
)

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `koanf:"url"     json:"url"`
	Format  string            `koanf:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `koanf:"events"  json:"events"`
	Headers map[string]string `koanf:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Repo      string `json:"repo,omitempty"`
	Operation string `json:"operation,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Target    string `json:"target,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
	Agent     bool   `json:"agent"`
}
