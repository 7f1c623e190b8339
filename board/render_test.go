package board

import (
	"testing"

	"autoops-api/domain"
)

func TestProjectColumnsInDisplayOrder(t *testing.T) {
	columns := Project(nil)
	if len(columns) != len(domain.Statuses) {
		t.Fatalf("expected %d columns, got %d", len(domain.Statuses), len(columns))
	}
	for i, status := range domain.Statuses {
		if columns[i].Status != status {
			t.Fatalf("column %d: expected %s, got %s", i, status, columns[i].Status)
		}
		if columns[i].Count != 0 || columns[i].Empty != EmptyColumnLabel {
			t.Fatalf("empty column missing marker: %+v", columns[i])
		}
	}
}

func TestProjectCountsAndEmptyState(t *testing.T) {
	columns := Project([]domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusTodo},
		{ID: "t2", Title: "Two", Status: domain.StatusTodo},
		{ID: "t3", Title: "Legacy", Status: ""},
	})

	byStatus := map[string]Column{}
	for _, col := range columns {
		byStatus[col.Status] = col
	}
	if col := byStatus[domain.StatusTodo]; col.Count != 2 || col.Empty != "" {
		t.Fatalf("unexpected todo column: %+v", col)
	}
	if col := byStatus[domain.StatusBacklog]; col.Count != 1 || col.Cards[0].ID != "t3" {
		t.Fatalf("statusless task should land in backlog: %+v", col)
	}
	if col := byStatus[domain.StatusDone]; col.Count != 0 || col.Empty != EmptyColumnLabel {
		t.Fatalf("unexpected done column: %+v", col)
	}
}

func TestProjectEscapesTitles(t *testing.T) {
	columns := Project([]domain.Task{
		{ID: "t1", Title: `<script>alert("x")</script>`, Status: domain.StatusTodo},
	})
	for _, col := range columns {
		if col.Status != domain.StatusTodo {
			continue
		}
		title := col.Cards[0].Title
		if title != "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;" {
			t.Fatalf("title not escaped: %q", title)
		}
	}
}

func TestProjectInitials(t *testing.T) {
	columns := Project([]domain.Task{
		{ID: "t1", Title: "A", Assignee: "alice johnson", Status: domain.StatusTodo},
		{ID: "t2", Title: "B", Assignee: "bob", Status: domain.StatusTodo},
		{ID: "t3", Title: "C", Assignee: "", Status: domain.StatusTodo},
	})
	for _, col := range columns {
		if col.Status != domain.StatusTodo {
			continue
		}
		got := []string{col.Cards[0].Initials, col.Cards[1].Initials, col.Cards[2].Initials}
		want := []string{"AJ", "B", "?"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("initials %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	tasks := []domain.Task{
		{ID: "t1", Title: "One", Status: domain.StatusReview},
		{ID: "t2", Title: "Two", Status: domain.StatusDone},
	}
	first := Project(tasks)
	second := Project(tasks)
	if len(first) != len(second) {
		t.Fatalf("column count changed between renders")
	}
	for i := range first {
		if first[i].Status != second[i].Status || first[i].Count != second[i].Count {
			t.Fatalf("projection not stable: %+v vs %+v", first[i], second[i])
		}
	}
}
