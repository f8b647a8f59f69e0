package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasker/internal/backend/restapi"
	"tasker/internal/cache"
	"tasker/internal/httpapi"
	"tasker/internal/observability"
	"tasker/internal/repository"
	"tasker/internal/service"
	"tasker/internal/taskerr"
	"tasker/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *testutil.FakeSource) {
	t.Helper()
	remote := testutil.NewFakeSource()
	metrics := observability.NewMetrics("tasker_test")
	repo := repository.New(remote, cache.NewMemory(), repository.WithMetrics(metrics))
	srv := httptest.NewServer(httpapi.New(repo, metrics, nil).Router())
	t.Cleanup(srv.Close)
	return srv, remote
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
}

func TestTaskLifecycle(t *testing.T) {
	srv, remote := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", `{"title":"Buy milk","description":"2L"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created restapi.Task
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Title != "Buy milk" || created.Completed {
		t.Errorf("created = %+v", created)
	}

	created.Completed = true
	update, _ := json.Marshal(created)
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/v1/tasks/"+created.ID, string(update))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/v1/tasks", "")
	var list []restapi.Task
	if err := json.Unmarshal(body, &list); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d %s (%v)", resp.StatusCode, body, err)
	}
	if len(list) != 1 || !list[0].Completed {
		t.Errorf("list = %+v", list)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1/tasks/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	if len(remote.Snapshot()) != 0 {
		t.Errorf("remote still holds %+v", remote.Snapshot())
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind   taskerr.Kind
		status int
	}{
		{taskerr.NotFound, http.StatusNotFound},
		{taskerr.Conflict, http.StatusBadRequest},
		{taskerr.Unauthorized, http.StatusUnauthorized},
		{taskerr.Timeout, http.StatusGatewayTimeout},
		{taskerr.Unreachable, http.StatusServiceUnavailable},
		{taskerr.ServerFault, http.StatusBadGateway},
		{taskerr.Corrupt, http.StatusInternalServerError},
		{taskerr.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			srv, remote := newTestServer(t)
			remote.ListErr = testutil.Fail(tt.kind)

			resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/tasks", "")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var out struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				t.Fatalf("decode error body %s: %v", body, err)
			}
			if out.Error.Code != string(tt.kind) || out.Error.Message == "" {
				t.Errorf("error body = %+v", out.Error)
			}
		})
	}
}

func TestStatusForKind_Cancelled(t *testing.T) {
	if got := httpapi.StatusForKind(taskerr.Cancelled); got != httpapi.StatusClientClosedRequest {
		t.Errorf("cancelled -> %d", got)
	}
}

func TestCreate_BadRequests(t *testing.T) {
	srv, remote := newTestServer(t)
	for _, body := range []string{"", "{not json", `{"title":"   "}`} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/tasks", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
	if remote.Calls("create") != 0 {
		t.Error("bad requests must not reach the remote")
	}
}

func TestUpdate_IDMismatch(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/tasks/a", `{"id":"b","title":"x"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/v1/tasks", "")
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `tasker_test_remote_calls_total{op="list",outcome="ok"} 1`) {
		t.Errorf("metrics missing list counter:\n%s", body)
	}
}

// One tasker serving as the remote of another.
func TestServeAsRemote(t *testing.T) {
	upstream, remote := newTestServer(t)
	remote.AddTask("srv-0", "from upstream")

	client := restapi.New(upstream.URL+"/v1", upstream.Client())
	local := cache.NewMemory()
	repo := repository.New(client, local)
	ctx := context.Background()

	tasks, err := repo.GetTasks(ctx)
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "from upstream" {
		t.Fatalf("tasks = %+v", tasks)
	}

	_, err = repo.GetTaskByID(ctx, "nope")
	if !errors.Is(err, taskerr.NotFound) {
		t.Errorf("GetTaskByID err = %v, want not_found", err)
	}

	upstream.Close()
	tasks, err = repo.GetTasks(ctx)
	if err != nil {
		t.Fatalf("GetTasks with upstream down: %v", err)
	}
	if len(tasks) != 1 || !tasks[0].Equal(mustGet(t, local, "srv-0")) {
		t.Errorf("fallback tasks = %+v", tasks)
	}
}

func TestUpdate_WithoutCreatedAtIsNotForwarded(t *testing.T) {
	var forwarded map[string]any
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&forwarded)
		_ = json.NewEncoder(w).Encode(restapi.Task{
			ID:        "a",
			Title:     "renamed",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}))
	t.Cleanup(origin.Close)

	repo := repository.New(restapi.New(origin.URL, origin.Client()), cache.NewMemory())
	srv := httptest.NewServer(httpapi.New(repo, nil, nil).Router())
	t.Cleanup(srv.Close)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/v1/tasks/a", `{"title":"renamed"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if _, ok := forwarded["createdAt"]; ok {
		t.Errorf("missing createdAt must not be forwarded as a zero time: %v", forwarded)
	}
	var got restapi.Task
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt.Year() != 2024 {
		t.Errorf("createdAt = %v, want the origin's value", got.CreatedAt)
	}
}

func mustGet(t *testing.T, c service.Cache, id string) service.Task {
	t.Helper()
	task, err := c.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("cache get %s: %v", id, err)
	}
	return task
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	repo := repository.New(testutil.NewFakeSource(), cache.NewMemory())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- httpapi.New(repo, nil, nil).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
