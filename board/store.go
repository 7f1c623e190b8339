package board

import (
	"context"

	"autoops-api/domain"
)

// Board is the client-side task cache behind the five status columns. It is
// disposable: every mutation reconciles by refetching the full list, and a
// failed load clears the cache so the columns render empty rather than stale.
//
// Board is not safe for concurrent use. The UI drives one interaction at a
// time; a second drop while a request is in flight is a race this design does
// not serialize against.
type Board struct {
	client *Client
	tasks  []domain.Task
	dragID string
}

// NewBoard creates an empty board backed by the given API client.
func NewBoard(client *Client) *Board {
	return &Board{client: client}
}

// Reload replaces the cache with the server's task list. On failure the cache
// is cleared; the board never shows tasks the server did not just confirm.
func (b *Board) Reload(ctx context.Context) error {
	tasks, err := b.client.Tasks(ctx)
	if err != nil {
		b.tasks = nil
		return err
	}
	b.tasks = tasks
	return nil
}

// Tasks returns a copy of the cached list.
func (b *Board) Tasks() []domain.Task {
	return append([]domain.Task(nil), b.tasks...)
}

// Task looks up a cached task by id.
func (b *Board) Task(id string) (domain.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Columns groups the cache into the five status columns. Records with an
// empty status show up under backlog; the stored value is left untouched.
func (b *Board) Columns() map[string][]domain.Task {
	columns := make(map[string][]domain.Task, len(domain.Statuses))
	for _, status := range domain.Statuses {
		columns[status] = []domain.Task{}
	}
	for _, t := range b.tasks {
		status := domain.DisplayStatus(t.Status)
		columns[status] = append(columns[status], t)
	}
	return columns
}

// StartDrag marks a task as in motion.
func (b *Board) StartDrag(id string) {
	b.dragID = id
}

// CancelDrag forgets the in-motion task without touching the server.
func (b *Board) CancelDrag() {
	b.dragID = ""
}

// Drop finishes a drag into the given column. Dropping onto the task's
// current column is a no-op with no network call. Otherwise the full cached
// record is submitted with the new status and the board reloads regardless of
// the outcome, so a rejected move snaps the card back to server truth.
func (b *Board) Drop(ctx context.Context, column string) error {
	id := b.dragID
	b.dragID = ""
	if id == "" {
		return nil
	}
	if !domain.ValidStatus(column) {
		return &domain.ValidationError{Field: "status", Message: "unknown status"}
	}

	task, ok := b.Task(id)
	if !ok {
		// The card vanished between drag start and drop. Reconcile.
		return b.Reload(ctx)
	}
	if domain.DisplayStatus(task.Status) == column {
		return nil
	}

	task.Status = column
	_, err := b.client.UpdateTask(ctx, task)
	if reloadErr := b.Reload(ctx); err == nil {
		err = reloadErr
	}
	return err
}

// Create submits a new task and reconciles.
func (b *Board) Create(ctx context.Context, task domain.Task) error {
	_, err := b.client.CreateTask(ctx, task)
	if err != nil {
		return err
	}
	return b.Reload(ctx)
}

// Save submits a full-record edit and reconciles regardless of the outcome.
func (b *Board) Save(ctx context.Context, task domain.Task) error {
	_, err := b.client.UpdateTask(ctx, task)
	if reloadErr := b.Reload(ctx); err == nil {
		err = reloadErr
	}
	return err
}

// Remove deletes a task and reconciles. A not-found delete still reloads, so
// a card removed by another session disappears from the columns.
func (b *Board) Remove(ctx context.Context, id string) error {
	err := b.client.DeleteTask(ctx, id)
	if reloadErr := b.Reload(ctx); err == nil {
		err = reloadErr
	}
	return err
}
