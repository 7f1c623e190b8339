package board

import (
	"html"

	"autoops-api/domain"
)

// EmptyColumnLabel is shown when a column has no cards.
const EmptyColumnLabel = "No tasks"

var columnTitles = map[string]string{
	domain.StatusBacklog:    "Backlog",
	domain.StatusTodo:       "To Do",
	domain.StatusInProgress: "In Progress",
	domain.StatusReview:     "Review",
	domain.StatusDone:       "Done",
}

// Card is the display projection of one task. Title is HTML-escaped because
// it is user-supplied; the rest of the fields are enum or server-generated
// values.
type Card struct {
	ID       string
	Code     string
	Type     string
	Title    string
	Priority string
	Initials string
}

// Column is the display projection of one status lane.
type Column struct {
	Status string
	Title  string
	Count  int
	Cards  []Card
	Empty  string
}

// Project turns a task list into the five columns in display order. It is a
// pure function of its input: rendering twice for the same list yields the
// same columns.
func Project(tasks []domain.Task) []Column {
	grouped := make(map[string][]Card, len(domain.Statuses))
	for _, t := range tasks {
		status := domain.DisplayStatus(t.Status)
		grouped[status] = append(grouped[status], Card{
			ID:       t.ID,
			Code:     t.Code,
			Type:     t.Type,
			Title:    html.EscapeString(t.Title),
			Priority: t.Priority,
			Initials: domain.Initials(t.Assignee),
		})
	}

	columns := make([]Column, 0, len(domain.Statuses))
	for _, status := range domain.Statuses {
		cards := grouped[status]
		col := Column{
			Status: status,
			Title:  columnTitles[status],
			Count:  len(cards),
			Cards:  cards,
		}
		if len(cards) == 0 {
			col.Empty = EmptyColumnLabel
		}
		columns = append(columns, col)
	}
	return columns
}
