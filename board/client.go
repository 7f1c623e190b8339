package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"

	"autoops-api/domain"
)

// ErrSessionExpired signals that the server rejected the stored credential.
// The session has already been cleared; the caller should send the user back
// to the login screen.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-auth failure reported by the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Session is the credential persisted between page loads.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// SessionStore persists the session across client restarts.
type SessionStore interface {
	Load() (Session, bool)
	Save(Session)
	Clear()
}

// MemorySessionStore keeps the session in process memory.
type MemorySessionStore struct {
	mu      sync.Mutex
	session Session
	ok      bool
}

func (m *MemorySessionStore) Load() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.ok
}

func (m *MemorySessionStore) Save(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.ok = true
}

func (m *MemorySessionStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.ok = false
}

// Client talks to the task API on behalf of one user. A 401 or 403 on any
// authenticated call clears the stored session and surfaces
// ErrSessionExpired.
type Client struct {
	baseURL string
	store   SessionStore
	http    *http.Client
}

// NewClient creates a Client. A nil store defaults to in-memory sessions.
func NewClient(baseURL string, store SessionStore) *Client {
	if store == nil {
		store = &MemorySessionStore{}
	}
	return &Client{baseURL: baseURL, store: store, http: &http.Client{}}
}

// Session returns the stored credential, if any.
func (c *Client) Session() (Session, bool) {
	return c.store.Load()
}

// Logout discards the stored credential.
func (c *Client) Logout() {
	c.store.Clear()
}

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type userResult struct {
	User domain.User `json:"user"`
}

// createTaskPayload mirrors the fields the create endpoint accepts. The
// server rejects unknown fields, so id and timestamps (which it assigns
// itself) must not ride along.
type createTaskPayload struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	TaskID      string `json:"taskId,omitempty"`
}

// updateTaskPayload carries only the six mutable fields the update endpoint
// decodes.
type updateTaskPayload struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, email, password, fullName string) error {
	body := registerPayload{Username: username, Email: email, Password: password, FullName: fullName}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil, false)
}

// Login exchanges credentials for a session and persists it.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var res loginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginPayload{Username: username, Password: password}, &res, false); err != nil {
		return Session{}, err
	}
	session := Session{Token: res.Token, UserID: res.UserID, Username: res.Username, FullName: res.FullName}
	c.store.Save(session)
	return session, nil
}

// Me fetches the profile behind the stored session.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var res userResult
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &res, true); err != nil {
		return domain.User{}, err
	}
	return res.User, nil
}

// Users lists all registered users for the team header.
func (c *Client) Users(ctx context.Context) ([]domain.UserSummary, error) {
	var users []domain.UserSummary
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users, true); err != nil {
		return nil, err
	}
	return users, nil
}

// Tasks fetches the full task list.
func (c *Client) Tasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks, true); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask submits a new task and returns the server-assigned record.
func (c *Client) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	body := createTaskPayload{
		Type:        task.Type,
		Title:       task.Title,
		Description: task.Description,
		Assignee:    task.Assignee,
		Priority:    task.Priority,
		Status:      task.Status,
		TaskID:      task.Code,
	}
	var created domain.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &created, true); err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

// UpdateTask submits all mutable fields of the record and returns the
// server's view of it.
func (c *Client) UpdateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	body := updateTaskPayload{
		Type:        task.Type,
		Title:       task.Title,
		Description: task.Description,
		Assignee:    task.Assignee,
		Priority:    task.Priority,
		Status:      task.Status,
	}
	var updated domain.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+task.ID, body, &updated, true); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var buf bytes.Buffer
	if body != nil {
		if err := sonic.ConfigStd.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		session, ok := c.store.Load()
		if !ok {
			return ErrSessionExpired
		}
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if authed && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		c.store.Clear()
		return ErrSessionExpired
	}
	if resp.StatusCode >= 400 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = sonic.ConfigStd.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out != nil {
		if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
