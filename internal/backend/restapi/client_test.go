package restapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasker/internal/backend/restapi"
	"tasker/internal/cache"
	"tasker/internal/repository"
	"tasker/internal/service"
	"tasker/internal/taskerr"
)

var created = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newServer(t *testing.T, h http.HandlerFunc) *restapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return restapi.New(srv.URL+"/v1/", srv.Client())
}

func TestClient_List(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","title":"Buy milk","description":"","completed":false,"createdAt":"2024-03-01T09:30:00Z"},
			{"id":"2","title":"Call mom","description":"sunday","completed":true,"createdAt":"2024-03-01T09:30:00Z"}
		]`))
	})

	tasks, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []service.Task{
		{ID: "1", Title: "Buy milk", CreatedAt: created},
		{ID: "2", Title: "Call mom", Description: "sunday", Completed: true, CreatedAt: created},
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i := range want {
		if !tasks[i].Equal(want[i]) {
			t.Errorf("task %d = %+v, want %+v", i, tasks[i], want[i])
		}
	}
}

func TestClient_CreateUsesServerID(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in restapi.Task
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if in.Title != "Write report" || in.ID != "hint" {
			t.Errorf("body = %+v", in)
		}
		in.ID = "srv-42"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	})

	got, err := c.Create(context.Background(), service.Task{ID: "hint", Title: "Write report", CreatedAt: created})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != "srv-42" {
		t.Errorf("ID = %q, want srv-42", got.ID)
	}
}

func TestClient_UpdateAndDeletePaths(t *testing.T) {
	var seen []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.EscapedPath())
		switch r.Method {
		case http.MethodPut:
			var in restapi.Task
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(in)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	if _, err := c.Update(ctx, service.Task{ID: "a/b", Title: "x"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := c.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := []string{"PUT /v1/tasks/a%2Fb", "DELETE /v1/tasks/a%2Fb"}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("requests = %v, want %v", seen, want)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   taskerr.Kind
		msg    string
	}{
		{http.StatusUnauthorized, `{"error":{"code":"unauthorized","message":"bad token"}}`, taskerr.Unauthorized, "bad token"},
		{http.StatusNotFound, `{"error":"no such task"}`, taskerr.NotFound, "no such task"},
		{http.StatusBadRequest, `{"message":"title required"}`, taskerr.Conflict, "title required"},
		{http.StatusConflict, "", taskerr.Conflict, "Conflict"},
		{http.StatusInternalServerError, "boom", taskerr.ServerFault, "boom"},
		{http.StatusBadGateway, "", taskerr.ServerFault, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Get(context.Background(), "1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %s", err, tt.want)
			}
			var e *taskerr.Error
			if !errors.As(err, &e) {
				t.Fatalf("error is not classified: %T", err)
			}
			if e.Status != tt.status {
				t.Errorf("Status = %d, want %d", e.Status, tt.status)
			}
			if e.Message != tt.msg {
				t.Errorf("Message = %q, want %q", e.Message, tt.msg)
			}
		})
	}
}

func TestClient_MissingIDIsUnknown(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"no id"}`))
	})
	_, err := c.Create(context.Background(), service.Task{Title: "no id"})
	if taskerr.KindOf(err) != taskerr.Unknown {
		t.Errorf("kind = %s, want unknown", taskerr.KindOf(err))
	}
}

func TestClient_BadBodyIsUnknown(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.List(context.Background())
	if taskerr.KindOf(err) != taskerr.Unknown {
		t.Errorf("kind = %s, want unknown", taskerr.KindOf(err))
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := restapi.New(url, &http.Client{Timeout: time.Second})
	_, err := c.List(context.Background())
	if !errors.Is(err, taskerr.Unreachable) {
		t.Errorf("err = %v, want unreachable", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := restapi.New(srv.URL, &http.Client{Timeout: 50 * time.Millisecond})
	_, err := c.List(context.Background())
	if !errors.Is(err, taskerr.Timeout) {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestClient_Cancelled(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.List(ctx)
	if !errors.Is(err, taskerr.Cancelled) {
		t.Errorf("err = %v, want cancelled", err)
	}
}

func TestNewHTTPClient_BearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	hc := restapi.NewHTTPClient(context.Background(), "s3cret", time.Second)
	if _, err := restapi.New(srv.URL, hc).List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if auth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", auth)
	}

	plain := restapi.NewHTTPClient(context.Background(), "", time.Second)
	if _, err := restapi.New(srv.URL, plain).List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	if auth != "" {
		t.Errorf("Authorization without token = %q", auth)
	}
}

func TestClient_TimeoutWhileReadingBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","title":"x"`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	t.Cleanup(srv.Close)

	c := restapi.New(srv.URL, &http.Client{Timeout: 100 * time.Millisecond})
	_, err := c.List(context.Background())
	if !errors.Is(err, taskerr.Timeout) {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestClient_ConnectionDroppedMidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 100\r\n\r\n[{\"id\":")
		_ = buf.Flush()
	}))
	t.Cleanup(srv.Close)

	c := restapi.New(srv.URL, &http.Client{Timeout: time.Second})
	_, err := c.List(context.Background())
	if !errors.Is(err, taskerr.Unreachable) {
		t.Errorf("err = %v, want unreachable", err)
	}
}

func TestClient_EmptyBodyIsUnknown(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.List(context.Background())
	if taskerr.KindOf(err) != taskerr.Unknown {
		t.Errorf("kind = %s, want unknown", taskerr.KindOf(err))
	}
}

func TestClient_SlowBodyFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a"`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	t.Cleanup(srv.Close)

	store := cache.NewMemory()
	ctx := context.Background()
	if err := store.Replace(ctx, []service.Task{{ID: "cached", Title: "from cache"}}); err != nil {
		t.Fatal(err)
	}
	repo := repository.New(restapi.New(srv.URL, &http.Client{Timeout: 100 * time.Millisecond}), store)

	tasks, err := repo.GetTasks(ctx)
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "cached" {
		t.Errorf("tasks = %+v, want the cached snapshot", tasks)
	}
}

func TestClient_UpdateOmitsZeroCreatedAt(t *testing.T) {
	var bodies []map[string]any
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		bodies = append(bodies, raw)
		_ = json.NewEncoder(w).Encode(restapi.Task{ID: "a", Title: "x", CreatedAt: created})
	})

	ctx := context.Background()
	if _, err := c.Update(ctx, service.Task{ID: "a", Title: "x"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.Update(ctx, service.Task{ID: "a", Title: "x", CreatedAt: created}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := bodies[0]["createdAt"]; ok {
		t.Errorf("zero createdAt should not be sent, body = %v", bodies[0])
	}
	if got := bodies[1]["createdAt"]; got != created.Format(time.RFC3339) {
		t.Errorf("createdAt = %v, want %s", got, created.Format(time.RFC3339))
	}
}
