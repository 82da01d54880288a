package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return json.Marshal(event)
	}
}

func summary(event Event) string {
	switch event.Kind {
	case EventQuotaLow:
		return fmt.Sprintf("ghgate: API quota low on %s (%d remaining)", event.Repo, event.Remaining)
	case EventDestructive:
		return fmt.Sprintf("ghgate: %s allowed on %s %s", event.Operation, event.Repo, event.Target)
	default:
		return fmt.Sprintf("ghgate: %s denied on %s %s", event.Operation, event.Repo, event.Target)
	}
}

func formatSlack(event Event) ([]byte, error) {
	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Repo:* %s", event.Repo)},
	}
	if event.Operation != "" {
		fields = append(fields,
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Operation:* %s (%s)", event.Operation, event.Tier)},
			map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Target:* %s", event.Target)},
		)
	}
	if event.Reason != "" {
		fields = append(fields, map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)})
	}

	payload := map[string]any{
		"text": summary(event),
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": fmt.Sprintf("ghgate: %s", event.Kind)},
			},
			map[string]any{"type": "section", "fields": fields},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "warning"
	switch {
	case event.Kind == EventDestructive:
		severity = "info"
	case event.Kind == EventDeny && event.Tier == "destructive":
		severity = "error"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  summary(event),
			"severity": severity,
			"source":   "ghgate",
			"custom_details": map[string]any{
				"repo":      event.Repo,
				"operation": event.Operation,
				"tier":      event.Tier,
				"target":    event.Target,
				"reason":    event.Reason,
				"agent":     event.Agent,
			},
		},
	}
	return json.Marshal(payload)
}
