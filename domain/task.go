package domain

import (
	"strings"
	"time"
)

// Board columns. A stored record may carry an empty status (legacy rows);
// reads surface it unchanged and the board groups it under backlog.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	TypeTask  = "task"
	TypeStory = "story"
	TypeBug   = "bug"
	TypeEpic  = "epic"
)

const maxTitleLength = 200

// Statuses lists the board columns in display order.
var Statuses = []string{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

var (
	validStatuses   = map[string]bool{StatusBacklog: true, StatusTodo: true, StatusInProgress: true, StatusReview: true, StatusDone: true}
	validPriorities = map[string]bool{PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true}
	validTypes      = map[string]bool{TypeTask: true, TypeStory: true, TypeBug: true, TypeEpic: true}
)

// Task represents a single board item.
type Task struct {
	ID          string    `json:"id"`
	Code        string    `json:"taskId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Assignee    string    `json:"assignee"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskPatch is a partial update. Nil fields retain the stored value.
type TaskPatch struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Assignee    *string `json:"assignee"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// Apply overlays the patch onto the task. Validation happens separately so a
// rejected patch never reaches storage.
func (t *Task) Apply(p TaskPatch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// Validate checks field constraints. The title is trimmed in place.
func (t *Task) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len(t.Title) > maxTitleLength {
		return &ValidationError{Field: "title", Message: "title is too long"}
	}
	if !validTypes[t.Type] {
		return &ValidationError{Field: "type", Message: "unknown task type"}
	}
	if !validPriorities[t.Priority] {
		return &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	if !validStatuses[t.Status] {
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	return nil
}

// ValidStatus reports whether s is one of the five board columns.
func ValidStatus(s string) bool { return validStatuses[s] }

// DisplayStatus maps a stored status to the column it is shown under.
func DisplayStatus(s string) string {
	if s == "" {
		return StatusBacklog
	}
	return s
}
