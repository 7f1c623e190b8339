package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"autoops-api/domain"
)

// User rows live under fixed partitions: the username row holds the record,
// the id and email partitions hold index entities so AddEntity conflicts
// enforce all three uniqueness constraints.
const (
	userPartition      = "user"
	userIDPartition    = "user-id"
	userEmailPartition = "user-email"
)

// Storage provides access to underlying persistence mechanisms. Tasks are
// partitioned by owning user, so every read and write is ownership-scoped by
// construction.
type Storage struct {
	taskTable    *aztables.Client
	userTable    *aztables.Client
	welcomeQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, usersTable, welcomeQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	ut := svc.NewClient(usersTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	wq, err := azqueue.NewQueueClientFromConnectionString(connStr, welcomeQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: tt, userTable: ut, welcomeQueue: wq}, nil
}

// classify maps transport failures onto the domain error taxonomy. Anything
// that is not a definitive table response is treated as the backend being
// unreachable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return domain.ErrNotFound
		case http.StatusConflict:
			return domain.ErrConflict
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}

type taskEntity struct {
	aztables.Entity
	Code        string `json:"Code"`
	Type        string `json:"Type"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Assignee    string `json:"Assignee"`
	Priority    string `json:"Priority"`
	Status      string `json:"Status"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

func taskToEntity(userID string, t domain.Task) taskEntity {
	return taskEntity{
		Entity:      aztables.Entity{PartitionKey: userID, RowKey: t.ID},
		Code:        t.Code,
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func taskFromEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Code:        ent.Code,
		Type:        ent.Type,
		Title:       ent.Title,
		Description: ent.Description,
		Assignee:    ent.Assignee,
		Priority:    ent.Priority,
		Status:      ent.Status,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FetchTasks retrieves all tasks owned by the provided user.
func (s *Storage) FetchTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + userID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, e := range resp.Entities {
			task, err := taskFromEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// GetTask fetches a single task. A task owned by another user is a not-found,
// never a permission error.
func (s *Storage) GetTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, userID, taskID, nil)
	if err != nil {
		return domain.Task{}, classify(err)
	}
	return taskFromEntity(resp.Value)
}

// InsertTask durably adds a new task row.
func (s *Storage) InsertTask(ctx context.Context, userID string, task domain.Task) error {
	data, err := json.Marshal(taskToEntity(userID, task))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, data, nil); err != nil {
		return classify(err)
	}
	return nil
}

// UpdateTask replaces the stored row with the given record. Last writer wins;
// there is no ETag check because the board allows free concurrent edits.
func (s *Storage) UpdateTask(ctx context.Context, userID string, task domain.Task) error {
	data, err := json.Marshal(taskToEntity(userID, task))
	if err != nil {
		return err
	}
	opts := &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}
	if _, err := s.taskTable.UpdateEntity(ctx, data, opts); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteTask removes the row. Deleting an already-deleted task reports
// not-found rather than succeeding silently.
func (s *Storage) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, userID, taskID, nil); err != nil {
		return classify(err)
	}
	return nil
}

type userEntity struct {
	aztables.Entity
	ID           string `json:"Id"`
	Email        string `json:"Email"`
	PasswordHash string `json:"PasswordHash"`
	FullName     string `json:"FullName"`
	CreatedAt    string `json:"CreatedAt"`
	LastLogin    string `json:"LastLogin"`
}

type userIndexEntity struct {
	aztables.Entity
	Username string `json:"Username"`
}

func userFromEntity(data []byte) (domain.User, error) {
	var ent userEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           ent.ID,
		Username:     ent.RowKey,
		Email:        ent.Email,
		PasswordHash: ent.PasswordHash,
		FullName:     ent.FullName,
		CreatedAt:    parseTime(ent.CreatedAt),
		LastLogin:    parseTime(ent.LastLogin),
	}, nil
}

// CreateUser inserts the user record plus its email and id index entities.
// Any insert conflict surfaces as domain.ErrConflict; index writes that fail
// roll back the rows already written so a half-registered user never lingers.
func (s *Storage) CreateUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(userEntity{
		Entity:       aztables.Entity{PartitionKey: userPartition, RowKey: user.Username},
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		CreatedAt:    formatTime(user.CreatedAt),
		LastLogin:    formatTime(user.LastLogin),
	})
	if err != nil {
		return err
	}
	if _, err := s.userTable.AddEntity(ctx, data, nil); err != nil {
		return classify(err)
	}

	if err := s.addUserIndex(ctx, userEmailPartition, user.Email, user.Username); err != nil {
		s.deleteUserRow(ctx, userPartition, user.Username)
		return err
	}
	if err := s.addUserIndex(ctx, userIDPartition, user.ID, user.Username); err != nil {
		s.deleteUserRow(ctx, userEmailPartition, user.Email)
		s.deleteUserRow(ctx, userPartition, user.Username)
		return err
	}
	return nil
}

func (s *Storage) addUserIndex(ctx context.Context, partition, key, username string) error {
	data, err := json.Marshal(userIndexEntity{
		Entity:   aztables.Entity{PartitionKey: partition, RowKey: key},
		Username: username,
	})
	if err != nil {
		return err
	}
	if _, err := s.userTable.AddEntity(ctx, data, nil); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Storage) deleteUserRow(ctx context.Context, partition, key string) {
	_, _ = s.userTable.DeleteEntity(ctx, partition, key, nil)
}

// UserByUsername fetches the user record keyed by its immutable username.
func (s *Storage) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	resp, err := s.userTable.GetEntity(ctx, userPartition, username, nil)
	if err != nil {
		return domain.User{}, classify(err)
	}
	return userFromEntity(resp.Value)
}

// UserByID resolves the server-assigned identifier through the id index.
func (s *Storage) UserByID(ctx context.Context, id string) (domain.User, error) {
	resp, err := s.userTable.GetEntity(ctx, userIDPartition, id, nil)
	if err != nil {
		return domain.User{}, classify(err)
	}
	var idx userIndexEntity
	if err := json.Unmarshal(resp.Value, &idx); err != nil {
		return domain.User{}, err
	}
	return s.UserByUsername(ctx, idx.Username)
}

// TouchLastLogin records a successful authentication.
func (s *Storage) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"PartitionKey": userPartition,
		"RowKey":       user.Username,
		"LastLogin":    formatTime(at),
	})
	if err != nil {
		return err
	}
	opts := &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge}
	if _, err := s.userTable.UpdateEntity(ctx, data, opts); err != nil {
		return classify(err)
	}
	return nil
}

// FetchUsers lists all registered users.
func (s *Storage) FetchUsers(ctx context.Context) ([]domain.User, error) {
	filter := "PartitionKey eq '" + userPartition + "'"
	pager := s.userTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []domain.User{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, e := range resp.Entities {
			user, err := userFromEntity(e)
			if err != nil {
				return nil, err
			}
			users = append(users, user)
		}
	}
	return users, nil
}

// EnqueueWelcomeEmail hands the message to the mail queue.
func (s *Storage) EnqueueWelcomeEmail(ctx context.Context, msg domain.WelcomeEmail) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := s.welcomeQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return classify(err)
	}
	return nil
}
