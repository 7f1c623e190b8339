package api

import (
	"context"
	"time"

	"autoops-api/domain"
)

// Storage abstracts persistence for handlers. Implementations return
// domain.ErrNotFound for missing or foreign-owned records, domain.ErrConflict
// for uniqueness violations and domain.ErrUnavailable when the backend is
// unreachable.
type Storage interface {
	FetchTasks(ctx context.Context, userID string) ([]domain.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (domain.Task, error)
	InsertTask(ctx context.Context, userID string, task domain.Task) error
	UpdateTask(ctx context.Context, userID string, task domain.Task) error
	DeleteTask(ctx context.Context, userID, taskID string) error

	CreateUser(ctx context.Context, user domain.User) error
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	FetchUsers(ctx context.Context) ([]domain.User, error)

	EnqueueWelcomeEmail(ctx context.Context, msg domain.WelcomeEmail) error
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   string
	Username string
}

// Authenticator is implemented by types able to resolve principals from
// Authorization headers.
type Authenticator interface {
	PrincipalFromAuthHeader(string) (Principal, error)
}

// TokenIssuer mints bearer credentials at login.
type TokenIssuer interface {
	IssueToken(userID, username string) (string, error)
}
