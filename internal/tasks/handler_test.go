package tasks

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authapi "tasknest/internal/auth/api"
)

func gateAs(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authapi.ContextWithUserID(r.Context(), userID)))
		})
	}
}

func newTestServer(t *testing.T, userID string) (*httptest.Server, *MemoryStore) {
	t.Helper()

	store := NewMemoryStore()
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux, gateAs(userID))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
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
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

func createList(t *testing.T, srv *httptest.Server, title string) List {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/lists", `{"title":"`+title+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create list status = %d, body = %s", resp.StatusCode, body)
	}
	var l List
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	return l
}

func createTask(t *testing.T, srv *httptest.Server, listID, title string) Task {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/lists/"+listID+"/tasks", `{"title":"`+title+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task status = %d, body = %s", resp.StatusCode, body)
	}
	var task Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	return task
}

func TestLists_CRUD(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, "user-1")

	l := createList(t, srv, "groceries")
	if l.Title != "groceries" || l.ID == "" {
		t.Fatalf("created list = %+v", l)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/lists", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get lists status = %d", resp.StatusCode)
	}
	var lists []List
	if err := json.Unmarshal([]byte(body), &lists); err != nil {
		t.Fatalf("unmarshal lists: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != l.ID {
		t.Fatalf("lists = %+v", lists)
	}

	resp, body = do(t, http.MethodPatch, srv.URL+"/lists/"+l.ID, `{"title":"errands"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", resp.StatusCode, body)
	}
	var updated List
	if err := json.Unmarshal([]byte(body), &updated); err != nil {
		t.Fatalf("unmarshal updated list: %v", err)
	}
	if updated.Title != "errands" || updated.ID != l.ID {
		t.Fatalf("updated = %+v", updated)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/lists/"+l.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/lists/"+l.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
}

func TestLists_EmptyIsArray(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, "user-1")

	resp, body := do(t, http.MethodGet, srv.URL+"/lists", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if strings.TrimSpace(body) != "[]" {
		t.Fatalf("body = %q, want empty JSON array", body)
	}
}

func TestLists_OwnershipScoping(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	muxA := http.NewServeMux()
	h.Register(muxA, gateAs("alice"))
	srvA := httptest.NewServer(muxA)
	t.Cleanup(srvA.Close)

	muxB := http.NewServeMux()
	h.Register(muxB, gateAs("bob"))
	srvB := httptest.NewServer(muxB)
	t.Cleanup(srvB.Close)

	l := createList(t, srvA, "alice things")

	// Bob sees nothing and touches nothing.
	resp, body := do(t, http.MethodGet, srvB.URL+"/lists", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Fatalf("bob lists: status = %d, body = %s", resp.StatusCode, body)
	}

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodGet, "/lists/" + l.ID, ""},
		{http.MethodPatch, "/lists/" + l.ID, `{"title":"stolen"}`},
		{http.MethodDelete, "/lists/" + l.ID, ""},
		{http.MethodGet, "/lists/" + l.ID + "/tasks", ""},
		{http.MethodPost, "/lists/" + l.ID + "/tasks", `{"title":"sneaky"}`},
	} {
		resp, body := do(t, tc.method, srvB.URL+tc.path, tc.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s as bob: status = %d, body = %s", tc.method, tc.path, resp.StatusCode, body)
		}
	}

	// Alice's list is untouched.
	got, err := store.GetList(t.Context(), l.ID, "alice")
	if err != nil || got.Title != "alice things" {
		t.Fatalf("alice list after bob's attempts: %+v, err = %v", got, err)
	}
}

func TestTasks_CRUD(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, "user-1")

	l := createList(t, srv, "chores")
	task := createTask(t, srv, l.ID, "dishes")
	if task.Completed {
		t.Fatalf("new task starts completed: %+v", task)
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/lists/"+l.ID+"/tasks", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get tasks status = %d", resp.StatusCode)
	}
	var items []Task
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(items) != 1 || items[0].ID != task.ID {
		t.Fatalf("tasks = %+v", items)
	}

	resp, body = do(t, http.MethodPatch, srv.URL+"/lists/"+l.ID+"/tasks/"+task.ID, `{"completed":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", resp.StatusCode, body)
	}
	var updated Task
	if err := json.Unmarshal([]byte(body), &updated); err != nil {
		t.Fatalf("unmarshal updated task: %v", err)
	}
	if !updated.Completed || updated.Title != "dishes" {
		t.Fatalf("updated = %+v", updated)
	}

	resp, body = do(t, http.MethodPatch, srv.URL+"/lists/"+l.ID+"/tasks/"+task.ID, `{"title":"dry dishes"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch title status = %d, body = %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal([]byte(body), &updated); err != nil {
		t.Fatalf("unmarshal updated task: %v", err)
	}
	if updated.Title != "dry dishes" || !updated.Completed {
		t.Fatalf("partial update clobbered fields: %+v", updated)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/lists/"+l.ID+"/tasks/"+task.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/lists/"+l.ID+"/tasks/"+task.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
}

func TestTasks_WrongListIs404(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, "user-1")

	a := createList(t, srv, "a")
	b := createList(t, srv, "b")
	task := createTask(t, srv, a.ID, "in list a")

	resp, body := do(t, http.MethodGet, srv.URL+"/lists/"+b.ID+"/tasks/"+task.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	resp, _ = do(t, http.MethodPatch, srv.URL+"/lists/"+b.ID+"/tasks/"+task.ID, `{"completed":true}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
}

func TestDeleteList_CascadesTasks(t *testing.T) {
	t.Parallel()
	srv, store := newTestServer(t, "user-1")

	l := createList(t, srv, "doomed")
	task := createTask(t, srv, l.ID, "going away")

	resp, _ := do(t, http.MethodDelete, srv.URL+"/lists/"+l.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	if _, err := store.GetTask(t.Context(), task.ID, l.ID); !IsNotFound(err) {
		t.Fatalf("task survived list deletion: err = %v", err)
	}
}

func TestValidation(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, "user-1")

	l := createList(t, srv, "ok")
	task := createTask(t, srv, l.ID, "ok task")

	cases := []struct {
		name, method, path, body string
	}{
		{"empty list title", http.MethodPost, "/lists", `{"title":"  "}`},
		{"long list title", http.MethodPost, "/lists", `{"title":"` + strings.Repeat("x", 300) + `"}`},
		{"malformed json", http.MethodPost, "/lists", `{"title":`},
		{"empty patch", http.MethodPatch, "/lists/" + l.ID + "/tasks/" + task.ID, `{}`},
		{"empty task title", http.MethodPatch, "/lists/" + l.ID + "/tasks/" + task.ID, `{"title":""}`},
		{"unknown field", http.MethodPost, "/lists", `{"title":"x","owner":"me"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
		})
	}
}
