package board

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"autoops-api/domain"
)

// fakeAPI is a minimal stand-in for the task service. It accepts one fixed
// credential and serves an in-memory task list.
type fakeAPI struct {
	mu       sync.Mutex
	token    string
	tasks    []domain.Task
	requests []string
	failList bool
}

func (f *fakeAPI) record(r *http.Request) {
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
}

func (f *fakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeAPI) SetTasks(tasks []domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append([]domain.Task(nil), tasks...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(r)

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message":  "Login successful",
			"token":    f.token,
			"userId":   "u1",
			"username": body.Username,
			"fullName": "Alice Johnson",
		})
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/register":
		writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
	default:
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authorization header missing"})
			return
		}
		f.serveAuthed(w, r)
	}
}

func (f *fakeAPI) serveAuthed(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
		if f.failList {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Database connection unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, f.tasks)
	case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
		var task domain.Task
		_ = json.NewDecoder(r.Body).Decode(&task)
		task.ID = "new-id"
		f.tasks = append(f.tasks, task)
		writeJSON(w, http.StatusCreated, task)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/tasks/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
		var incoming domain.Task
		_ = json.NewDecoder(r.Body).Decode(&incoming)
		for i, t := range f.tasks {
			if t.ID == id {
				incoming.ID = id
				f.tasks[i] = incoming
				writeJSON(w, http.StatusOK, incoming)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/tasks/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
		for i, t := range f.tasks {
			if t.ID == id {
				f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	}
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{token: "good-token"}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, NewClient(srv.URL, nil)
}

func loginClient(t *testing.T, client *Client) Session {
	t.Helper()
	session, err := client.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return session
}

func TestClientLoginStoresSession(t *testing.T) {
	_, client := newFakeAPI(t)

	session := loginClient(t, client)
	if session.Token != "good-token" || session.UserID != "u1" || session.Username != "alice" {
		t.Fatalf("unexpected session: %+v", session)
	}
	stored, ok := client.Session()
	if !ok || stored != session {
		t.Fatalf("session not persisted: %+v ok=%v", stored, ok)
	}
}

func TestClientLoginFailure(t *testing.T) {
	_, client := newFakeAPI(t)

	_, err := client.Login(context.Background(), "alice", "wrong00")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if apiErr.Message != "Invalid username or password" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
	if _, ok := client.Session(); ok {
		t.Fatal("failed login must not store a session")
	}
}

func TestClientTasksSendsBearer(t *testing.T) {
	api, client := newFakeAPI(t)
	api.SetTasks([]domain.Task{{ID: "t1", Title: "Ship it", Status: domain.StatusTodo}})
	loginClient(t, client)

	tasks, err := client.Tasks(context.Background())
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestClientWithoutSession(t *testing.T) {
	api, client := newFakeAPI(t)

	_, err := client.Tasks(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if reqs := api.Requests(); len(reqs) != 0 {
		t.Fatalf("expected no network call without a session, got %v", reqs)
	}
}

func TestClientRejectedTokenClearsSession(t *testing.T) {
	_, client := newFakeAPI(t)
	loginClient(t, client)

	// Corrupt the stored token so the next call is rejected.
	session, _ := client.Session()
	session.Token = "stale"
	client.store.Save(session)

	_, err := client.Tasks(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, ok := client.Session(); ok {
		t.Fatal("rejected token must clear the session")
	}
}

func TestClientLogout(t *testing.T) {
	_, client := newFakeAPI(t)
	loginClient(t, client)

	client.Logout()
	if _, ok := client.Session(); ok {
		t.Fatal("logout must clear the session")
	}
}
