package domain

import (
	"testing"
	"time"
)

func validTask() Task {
	return Task{
		ID:       "t1",
		Code:     "AUTO-101",
		Type:     TypeTask,
		Title:    "Fix bug",
		Priority: PriorityMedium,
		Status:   StatusTodo,
	}
}

func TestValidateTrimsTitle(t *testing.T) {
	task := validTask()
	task.Title = "  Fix bug  "
	if err := task.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if task.Title != "Fix bug" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
}

func TestValidateRejections(t *testing.T) {
	testCases := map[string]struct {
		mutate func(*Task)
		field  string
	}{
		"empty_title":      {func(task *Task) { task.Title = "" }, "title"},
		"whitespace_title": {func(task *Task) { task.Title = "   " }, "title"},
		"bad_status":       {func(task *Task) { task.Status = "not-a-real-status" }, "status"},
		"bad_priority":     {func(task *Task) { task.Priority = "severe" }, "priority"},
		"bad_type":         {func(task *Task) { task.Type = "chore" }, "type"},
		"empty_status":     {func(task *Task) { task.Status = "" }, "status"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			task := validTask()
			tc.mutate(&task)
			err := task.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestApplyRetainsUnspecifiedFields(t *testing.T) {
	task := validTask()
	task.Description = "original description"
	task.Assignee = "Alice Smith"
	task.CreatedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	status := StatusDone
	task.Apply(TaskPatch{Status: &status})

	if task.Status != StatusDone {
		t.Fatalf("expected status %q, got %q", StatusDone, task.Status)
	}
	if task.Title != "Fix bug" || task.Description != "original description" || task.Assignee != "Alice Smith" {
		t.Fatalf("unexpected field change: %+v", task)
	}
	if task.Priority != PriorityMedium || task.Type != TypeTask {
		t.Fatalf("unexpected enum change: %+v", task)
	}
}

func TestApplyAllFields(t *testing.T) {
	task := validTask()
	typ, title, desc := TypeBug, "New title", "d"
	assignee, prio, status := "Bob", PriorityUrgent, StatusReview
	task.Apply(TaskPatch{
		Type:        &typ,
		Title:       &title,
		Description: &desc,
		Assignee:    &assignee,
		Priority:    &prio,
		Status:      &status,
	})
	if task.Type != TypeBug || task.Title != "New title" || task.Description != "d" ||
		task.Assignee != "Bob" || task.Priority != PriorityUrgent || task.Status != StatusReview {
		t.Fatalf("patch not fully applied: %+v", task)
	}
}

func TestDisplayStatus(t *testing.T) {
	if got := DisplayStatus(""); got != StatusBacklog {
		t.Fatalf("expected backlog for empty status, got %q", got)
	}
	if got := DisplayStatus(StatusDone); got != StatusDone {
		t.Fatalf("expected done, got %q", got)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range Statuses {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ValidStatus("") || ValidStatus("archived") {
		t.Fatal("expected invalid statuses to be rejected")
	}
}
