package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Summary counts decisions across a set of entries.
type Summary struct {
	Total int `json:"total"`
	Allow int `json:"allow"`
	Deny  int `json:"deny"`
}

// Tail returns the last n entries of the log (all entries when n <= 0).
// Malformed lines are skipped.
func Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
		if n > 0 && len(entries) > n {
			entries = entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// Summarize counts allow and deny decisions.
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Decision {
		case DecisionAllow:
			s.Allow++
		case DecisionDeny:
			s.Deny++
		}
	}
	return s
}

// FormatTimeline renders entries as one line per decision plus a summary.
func FormatTimeline(entries []Entry) string {
	if len(entries) == 0 {
		return "No audit entries.\n"
	}

	var b strings.Builder
	for _, e := range entries {
		agent := ""
		if e.Agent {
			agent = "  [agent]"
		}
		fmt.Fprintf(&b, "%-19s %-5s %-11s %-15s %-24s %s%s\n",
			formatTime(e.Timestamp),
			strings.ToUpper(e.Decision),
			e.Tier,
			truncate(e.Operation, 15),
			truncate(e.Repo, 24),
			e.Target,
			agent)
	}

	s := Summarize(entries)
	fmt.Fprintf(&b, "%d entries: %d allow, %d deny\n", s.Total, s.Allow, s.Deny)
	return b.String()
}

func formatTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
