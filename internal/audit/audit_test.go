package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	return l, path
}

func testEntry(decision string) Entry {
	return Entry{
		Repo:      "octo/hello",
		Operation: "pr_merge",
		Tier:      "destructive",
		Decision:  decision,
		Reason:    "test reason",
		Target:    "#42",
	}
}

func record(t *testing.T, l *Log, decision string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := l.Record(testEntry(decision)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)
	record(t, l, DecisionAllow, 5)
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)
	record(t, l, DecisionAllow, 3)
	l.Close()

	lines := readLines(t, path)
	lines[1] = strings.Replace(lines[1], `"allow"`, `"deny"`, 1)
	writeLines(t, path, lines)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)
	record(t, l, DecisionAllow, 3)
	l.Close()

	lines := readLines(t, path)
	writeLines(t, path, []string{lines[0], lines[2]})

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsInsertedEntry(t *testing.T) {
	l, path := newTestLog(t)
	record(t, l, DecisionAllow, 3)
	l.Close()

	lines := readLines(t, path)
	fake := testEntry(DecisionDeny)
	fake.PrevHash = "sha256:fake"
	fakeJSON, _ := json.Marshal(fake)
	writeLines(t, path, []string{lines[0], string(fakeJSON), lines[1], lines[2]})

	if result := Verify(path); result.Valid {
		t.Fatal("expected chain with inserted entry to be invalid")
	}
}

func TestVerifyRejectsBadGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	e := testEntry(DecisionAllow)
	e.PrevHash = "sha256:nope"
	line, _ := json.Marshal(e)
	writeLines(t, path, []string{string(line)})

	result := Verify(path)
	if result.Valid || result.ErrorLine != 1 {
		t.Fatalf("expected failure at line 1, got %+v", result)
	}
	if !strings.Contains(result.Error, "genesis") {
		t.Errorf("error should mention genesis: %s", result.Error)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	result := Verify(filepath.Join(t.TempDir(), "absent.jsonl"))
	if result.Valid || result.Error == "" {
		t.Fatalf("expected open error, got %+v", result)
	}
}

func TestEmptyLogPassesVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected empty log to be valid, got: %s", result.Error)
	}
	if result.Lines != 0 {
		t.Fatalf("expected 0 lines, got %d", result.Lines)
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(testEntry(DecisionAllow))
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after concurrent writes, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 100 {
		t.Fatalf("expected 100 lines, got %d", result.Lines)
	}
}

func TestRecordFillsTimestampAndGenesis(t *testing.T) {
	l, path := newTestLog(t)
	l.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	record(t, l, DecisionAllow, 1)
	l.Close()

	var entry Entry
	if err := json.Unmarshal([]byte(readLines(t, path)[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.PrevHash != GenesisHash {
		t.Fatalf("expected genesis hash %s, got %s", GenesisHash, entry.PrevHash)
	}
	if entry.Timestamp != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %s", entry.Timestamp)
	}
}

func TestHashLineIsDeterministic(t *testing.T) {
	line := []byte(`{"ts":"2026-01-15T10:30:00.000Z","operation":"pr_list","tier":"read","decision":"allow","agent":false,"prev_hash":"sha256:def"}`)
	h1 := HashLine(line)
	h2 := HashLine(line)
	if h1 != h2 {
		t.Fatalf("expected same hash, got %s and %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("expected sha256: prefix, got %s", h1)
	}
	if len(h1) != 7+64 {
		t.Fatalf("expected 71 char hash string, got %d", len(h1))
	}
	if HashLine([]byte("a")) == HashLine([]byte("b")) {
		t.Fatal("expected different hashes for different inputs")
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reopen.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	record(t, l1, DecisionAllow, 3)
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if l2.Path() != path {
		t.Errorf("Path() = %s", l2.Path())
	}
	record(t, l2, DecisionDeny, 2)
	l2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after reopen, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestTailReturnsLastEntries(t *testing.T) {
	l, path := newTestLog(t)
	record(t, l, DecisionAllow, 3)
	record(t, l, DecisionDeny, 2)
	l.Close()

	got, err := Tail(path, 3)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	var decisions []string
	for _, e := range got {
		decisions = append(decisions, e.Decision)
	}
	if diff := cmp.Diff([]string{"allow", "deny", "deny"}, decisions); diff != "" {
		t.Errorf("decisions (-want +got):\n%s", diff)
	}

	all, err := Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Summary{Total: 5, Allow: 3, Deny: 2}, Summarize(all)); diff != "" {
		t.Errorf("summary (-want +got):\n%s", diff)
	}
}

func TestTailSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	line, _ := json.Marshal(testEntry(DecisionAllow))
	writeLines(t, path, []string{"not json", string(line)})

	got, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
}

func TestFormatTimeline(t *testing.T) {
	if got := FormatTimeline(nil); got != "No audit entries.\n" {
		t.Errorf("empty timeline = %q", got)
	}

	e := testEntry(DecisionDeny)
	e.Timestamp = "2026-03-01T12:00:00.000Z"
	e.Agent = true
	out := FormatTimeline([]Entry{e})

	for _, want := range []string{"2026-03-01 12:00:00", "DENY", "pr_merge", "octo/hello", "#42", "[agent]", "1 entries: 0 allow, 1 deny"} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}
}
