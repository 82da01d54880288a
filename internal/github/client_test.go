package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"

	"github.com/ppiankov/ghgate/internal/model"
	"github.com/ppiankov/ghgate/internal/ratelimit"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	gh.BaseURL = u

	c := newClient(gh, model.Repo{Owner: "octo", Name: "hello"}, srv.URL+"/graphql", Options{
		MaxRetries: 3,
		Logger:     zerolog.Nop(),
	})
	c.retry.baseDelay = time.Millisecond
	c.retry.maxDelay = 5 * time.Millisecond
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestNewClientGitHubCom(t *testing.T) {
	c, err := NewClient(context.Background(), model.Repo{Owner: "o", Name: "r"}, Options{Token: "t"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.gh.BaseURL.Host != "api.github.com" {
		t.Errorf("base host = %s", c.gh.BaseURL.Host)
	}
	if c.graphqlURL != "https://api.github.com/graphql" {
		t.Errorf("graphql url = %s", c.graphqlURL)
	}
}

func TestNewClientEnterprise(t *testing.T) {
	c, err := NewClient(context.Background(), model.Repo{Owner: "o", Name: "r"}, Options{Host: "github.example.com"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.gh.BaseURL.String() != "https://github.example.com/api/v3/" {
		t.Errorf("base url = %s", c.gh.BaseURL)
	}
	if c.graphqlURL != "https://github.example.com/api/graphql" {
		t.Errorf("graphql url = %s", c.graphqlURL)
	}
}

func TestFetchQuota(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rate_limit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"resources": map[string]any{
				"core":    map[string]any{"limit": 5000, "remaining": 4950, "reset": 1772366400},
				"search":  map[string]any{"limit": 30, "remaining": 0, "reset": 1772366460},
				"graphql": map[string]any{"limit": 5000, "remaining": 6000, "reset": 1772366400},
			},
		})
	})
	c := newTestClient(t, mux)

	got, err := c.FetchQuota(context.Background())
	if err != nil {
		t.Fatalf("FetchQuota: %v", err)
	}
	want := map[string]ratelimit.Quota{
		"core":    {Limit: 5000, Used: 50, Remaining: 4950, Reset: 1772366400},
		"search":  {Limit: 30, Used: 30, Remaining: 0, Reset: 1772366460},
		"graphql": {Limit: 5000, Used: 0, Remaining: 5000, Reset: 1772366400},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("quota mismatch (-want +got):\n%s", diff)
	}
	for name, q := range got {
		if _, err := ratelimit.FromQuota(name, q); err != nil {
			t.Errorf("quota for %s violates snapshot invariant: %v", name, err)
		}
	}
}

func TestFetchQuotaFeedsMonitor(t *testing.T) {
	mux := http.NewServeMux()
	var calls atomic.Int32
	mux.HandleFunc("GET /rate_limit", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"resources": map[string]any{
				"core": map[string]any{"limit": 5000, "remaining": 0, "reset": 1772366400},
			},
		})
	})
	m := ratelimit.NewMonitor(newTestClient(t, mux))

	_, err := m.Check(context.Background(), "core")
	var ex *ratelimit.RateExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	m.Check(context.Background(), "core")
	if calls.Load() != 1 {
		t.Errorf("expected one remote call within TTL, got %d", calls.Load())
	}
}

func TestListPullsRespectsLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state = %q", got)
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"number": 1, "title": "one", "state": "open", "user": map[string]any{"login": "a"},
				"head": map[string]any{"ref": "feat"}, "base": map[string]any{"ref": "main"},
				"labels": []map[string]any{{"name": "bug"}}},
			{"number": 2, "title": "two", "state": "open"},
			{"number": 3, "title": "three", "state": "open"},
		})
	})
	c := newTestClient(t, mux)

	pulls, err := c.ListPulls(context.Background(), PullListOptions{State: "open", Limit: 2})
	if err != nil {
		t.Fatalf("ListPulls: %v", err)
	}
	if len(pulls) != 2 {
		t.Fatalf("expected 2 pulls, got %d", len(pulls))
	}
	first := pulls[0]
	if first.Number != 1 || first.Author != "a" || first.Head != "feat" || first.Base != "main" {
		t.Errorf("unexpected first pull: %+v", first)
	}
	if diff := cmp.Diff([]string{"bug"}, first.Labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
}

func TestListIssuesSkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"number": 10, "title": "real issue", "state": "open"},
			{"number": 11, "title": "a pr", "state": "open", "pull_request": map[string]any{"url": "x"}},
		})
	})
	c := newTestClient(t, mux)

	issues, err := c.ListIssues(context.Background(), IssueListOptions{State: "open"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 1 || issues[0].Number != 10 {
		t.Fatalf("expected only issue #10, got %+v", issues)
	}
}

func TestMergePull(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/octo/hello/pulls/5/merge", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["merge_method"] != "squash" {
			t.Errorf("merge_method = %v", body["merge_method"])
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"merged": true, "sha": "abc123", "message": "merged"})
	})
	c := newTestClient(t, mux)

	res, err := c.MergePull(context.Background(), 5, MergeOptions{Method: "squash"})
	if err != nil {
		t.Fatalf("MergePull: %v", err)
	}
	want := &model.MergeResult{Merged: true, SHA: "abc123", Message: "merged"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("merge result (-want +got):\n%s", diff)
	}
}

func TestCancelRunAcceptsQueuedResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/hello/actions/runs/42/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusAccepted, map[string]any{})
	})
	c := newTestClient(t, mux)

	if err := c.CancelRun(context.Background(), 42); err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
}

func TestDeleteBranch(t *testing.T) {
	var hit atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /repos/octo/hello/git/refs/heads/feature-x", func(w http.ResponseWriter, r *http.Request) {
		hit.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	if err := c.DeleteBranch(context.Background(), "feature-x"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if !hit.Load() {
		t.Fatal("delete endpoint not called")
	}
}

func TestMutationRetriesSecondaryRateLimit(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/hello/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(t, w, http.StatusForbidden, map[string]any{
				"message":           "You have exceeded a secondary rate limit.",
				"documentation_url": "https://docs.github.com/rest/overview/resources-in-the-rest-api#secondary-rate-limits",
			})
			return
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{"id": 99, "body": "hi", "user": map[string]any{"login": "bot"}})
	})
	c := newTestClient(t, mux)

	cm, err := c.Comment(context.Background(), 7, "hi")
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if cm.ID != 99 || cm.Author != "bot" {
		t.Errorf("unexpected comment: %+v", cm)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestMutationDoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /repos/octo/hello/issues/8", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})
	c := newTestClient(t, mux)

	if _, err := c.SetIssueState(context.Background(), 8, "closed", ""); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestRequireRepo(t *testing.T) {
	c := newClient(github.NewClient(nil), model.Repo{}, "", Options{})
	if _, err := c.ListPulls(context.Background(), PullListOptions{}); !errors.Is(err, ErrNoRepo) {
		t.Errorf("ListPulls err = %v, want ErrNoRepo", err)
	}
	if err := c.DeleteBranch(context.Background(), "x"); !errors.Is(err, ErrNoRepo) {
		t.Errorf("DeleteBranch err = %v, want ErrNoRepo", err)
	}
}

func TestBulkClose(t *testing.T) {
	var (
		mu     sync.Mutex
		closed []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/issues", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("labels"); got != "stale" {
			t.Errorf("labels = %q", got)
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"number": 1, "state": "open"},
			{"number": 2, "state": "open"},
		})
	})
	mux.HandleFunc("PATCH /repos/octo/hello/issues/{n}", func(w http.ResponseWriter, r *http.Request) {
		n := r.PathValue("n")
		if n == "2" {
			writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{"message": "Validation Failed"})
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"closed"`) {
			t.Errorf("expected closed state in %s", body)
		}
		mu.Lock()
		closed = append(closed, n)
		mu.Unlock()
		writeJSON(t, w, http.StatusOK, map[string]any{"number": 1, "state": "closed"})
	})
	c := newTestClient(t, mux)

	dry, err := c.BulkClose(context.Background(), "stale", "not_planned", 0, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	mu.Lock()
	mutated := len(closed)
	mu.Unlock()
	if mutated != 0 || len(dry.Matched) != 2 {
		t.Fatalf("dry run must not mutate: closed=%d matched=%v", mutated, dry.Matched)
	}

	res, err := c.BulkClose(context.Background(), "stale", "not_planned", 0, false)
	if err != nil {
		t.Fatalf("BulkClose: %v", err)
	}
	if diff := cmp.Diff([]int{1}, res.Succeeded); diff != "" {
		t.Errorf("succeeded (-want +got):\n%s", diff)
	}
	if _, ok := res.Failed[2]; !ok {
		t.Errorf("expected #2 to fail, got %v", res.Failed)
	}
	if res.Err() == nil {
		t.Error("expected joined error")
	}
}

func TestBulkRequiresFilter(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	if _, err := c.BulkClose(context.Background(), "", "", 0, true); err == nil {
		t.Fatal("expected error without label filter")
	}
	if _, err := c.BulkLabel(context.Background(), "stale", nil, 0, true); err == nil {
		t.Fatal("expected error without labels to add")
	}
}

func TestMarkReadyUsesGraphQL(t *testing.T) {
	var mutated atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/pulls/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"number": 3, "draft": true, "node_id": "PR_node3"})
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]string `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Variables["id"] != "PR_node3" {
			t.Errorf("id = %q", body.Variables["id"])
		}
		mutated.Store(true)
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{}})
	})
	c := newTestClient(t, mux)

	if err := c.MarkReady(context.Background(), 3); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	if !mutated.Load() {
		t.Fatal("graphql mutation not sent")
	}
}

func TestPacedTransportDisabled(t *testing.T) {
	base := http.DefaultTransport
	if got := newPacedTransport(base, 0, 0, zerolog.Nop()); got != base {
		t.Errorf("zero rps should return base transport, got %T", got)
	}
	if _, ok := newPacedTransport(nil, 5, 0, zerolog.Nop()).(*pacedTransport); !ok {
		t.Error("positive rps should wrap transport")
	}
}

func TestRetrierStopsOnContextCancel(t *testing.T) {
	r := newRetrier(5, zerolog.Nop())
	r.baseDelay = time.Hour
	r.maxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := r.do(ctx, func() error {
		calls++
		return &github.RateLimitError{Message: "API rate limit exceeded"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestIsRateLimitError(t *testing.T) {
	if !isRateLimitError(fmt.Errorf("wrapped: %w", &github.RateLimitError{})) {
		t.Error("wrapped RateLimitError should match")
	}
	if !isRateLimitError(&github.AbuseRateLimitError{}) {
		t.Error("AbuseRateLimitError should match")
	}
	if isRateLimitError(errors.New("boom")) || isRateLimitError(nil) {
		t.Error("plain errors must not match")
	}
}

type graphqlBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func decodeGraphQL(t *testing.T, r *http.Request) graphqlBody {
	t.Helper()
	var body graphqlBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestGetProjectKeepsSingleSelectFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		body := decodeGraphQL(t, r)
		if body.Variables["id"] != "PVT_board" {
			t.Errorf("id = %v", body.Variables["id"])
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{
			"node": map[string]any{
				"id": "PVT_board", "title": "Roadmap", "number": 4, "url": "https://github.com/orgs/octo/projects/4",
				"fields": map[string]any{"nodes": []any{
					map[string]any{},
					map[string]any{"id": "PVTSSF_status", "name": "Status", "options": []any{
						map[string]any{"id": "opt_todo", "name": "Todo"},
						map[string]any{"id": "opt_done", "name": "Done"},
					}},
				}},
			},
		}})
	})
	c := newTestClient(t, mux)

	got, err := c.GetProject(context.Background(), "PVT_board")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	want := &model.ProjectBoard{
		ID: "PVT_board", Title: "Roadmap", Number: 4, URL: "https://github.com/orgs/octo/projects/4",
		Fields: []model.ProjectField{{
			ID: "PVTSSF_status", Name: "Status",
			Options: []model.ProjectOption{{ID: "opt_todo", Name: "Todo"}, {ID: "opt_done", Name: "Done"}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("board (-want +got):\n%s", diff)
	}
}

func TestGetProjectRejectsOtherNodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{"node": map[string]any{}}})
	})
	c := newTestClient(t, mux)

	if _, err := c.GetProject(context.Background(), "I_issue"); !errors.Is(err, ErrNotProject) {
		t.Fatalf("expected ErrNotProject, got %v", err)
	}
}

func TestGraphQLErrorsSurface(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"errors": []any{map[string]any{"message": "Could not resolve to a node"}}})
	})
	c := newTestClient(t, mux)

	_, err := c.GetProject(context.Background(), "PVT_gone")
	if err == nil || !strings.Contains(err.Error(), "Could not resolve to a node") {
		t.Fatalf("expected graphql error, got %v", err)
	}
}

func TestMoveItemByNumberAddsThenSetsOption(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/hello/issues/12", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"number": 12, "node_id": "I_node12"})
	})
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		body := decodeGraphQL(t, r)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.Contains(body.Query, "addProjectV2ItemById"):
			calls = append(calls, "add")
			if body.Variables["content"] != "I_node12" || body.Variables["project"] != "PVT_board" {
				t.Errorf("add variables = %v", body.Variables)
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{
				"addProjectV2ItemById": map[string]any{"item": map[string]any{"id": "PVTI_item12"}},
			}})
		case strings.Contains(body.Query, "updateProjectV2ItemFieldValue"):
			calls = append(calls, "update")
			want := map[string]any{"project": "PVT_board", "item": "PVTI_item12", "field": "PVTSSF_status", "option": "opt_done"}
			if diff := cmp.Diff(want, body.Variables); diff != "" {
				t.Errorf("update variables (-want +got):\n%s", diff)
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{}})
		default:
			t.Errorf("unexpected query %q", body.Query)
		}
	})
	c := newTestClient(t, mux)

	item, err := c.MoveItem(context.Background(), ProjectMove{
		ProjectID: "PVT_board", FieldID: "PVTSSF_status", OptionID: "opt_done", Number: 12,
	})
	if err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	if item != "PVTI_item12" {
		t.Errorf("item = %q", item)
	}
	if diff := cmp.Diff([]string{"add", "update"}, calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestMoveItemByItemIDSkipsAdd(t *testing.T) {
	var updates atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		body := decodeGraphQL(t, r)
		if !strings.Contains(body.Query, "updateProjectV2ItemFieldValue") {
			t.Errorf("unexpected query %q", body.Query)
		}
		updates.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{}})
	})
	c := newTestClient(t, mux)

	_, err := c.MoveItem(context.Background(), ProjectMove{
		ProjectID: "PVT_board", FieldID: "PVTSSF_status", OptionID: "opt_todo", ItemID: "PVTI_x",
	})
	if err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	if updates.Load() != 1 {
		t.Errorf("updates = %d", updates.Load())
	}
}

func TestMoveItemRequiresIDs(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	if _, err := c.MoveItem(context.Background(), ProjectMove{ProjectID: "PVT_board", Number: 1}); err == nil {
		t.Fatal("expected error without field and option")
	}
	if _, err := c.MoveItem(context.Background(), ProjectMove{ProjectID: "p", FieldID: "f", OptionID: "o"}); err == nil {
		t.Fatal("expected error without item or number")
	}
}
