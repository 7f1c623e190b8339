package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"autoops-api/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, issuer TokenIssuer, logger *log.Logger) {
	e.GET("/api/health", health())

	e.POST("/api/auth/register", registerUser(store, logger))
	e.POST("/api/auth/login", loginUser(store, issuer, logger))
	e.GET("/api/auth/me", currentUser(store, auth))
	e.GET("/api/users", listUsers(store, auth))

	e.GET("/api/tasks", listTasks(store, auth, logger))
	e.POST("/api/tasks", createTask(store, auth))
	e.PUT("/api/tasks/:id", updateTask(store, auth))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth))

	initWelcomeSender(store, logger)
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok", Message: "Server is running"})
	}
}

// failStore translates storage failures. Not-found and foreign ownership share
// one message so task existence never leaks across users.
func failStore(c echo.Context, err error, notFoundMsg string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: notFoundMsg})
	}
	if errors.Is(err, domain.ErrUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Database connection unavailable"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error"})
}

func failValidation(c echo.Context, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: verr.Error()})
	}
	return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid task"})
}

func listTasks(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger, "/api/tasks")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		principal, authErr := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(authStatus(authErr), messageResponse{Message: authErr.Error()})
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := store.FetchTasks(ctx, principal.UserID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = failStore(c, fetchErr, "Task not found")
			return err
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		principal, err := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(authStatus(err), messageResponse{Message: err.Error()})
		}

		var req createTaskRequest
		if err := decodeStrict(c.Request().Body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}

		now := time.Now().UTC()
		task := domain.Task{
			ID:          uuid.NewString(),
			Code:        req.TaskID,
			Type:        req.Type,
			Title:       req.Title,
			Description: req.Description,
			Assignee:    req.Assignee,
			Priority:    req.Priority,
			Status:      req.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if task.Code == "" {
			task.Code = newDisplayCode()
		}
		if task.Type == "" {
			task.Type = domain.TypeTask
		}
		if task.Priority == "" {
			task.Priority = domain.PriorityMedium
		}
		if task.Status == "" {
			task.Status = domain.StatusTodo
		}
		if err := task.Validate(); err != nil {
			return failValidation(c, err)
		}

		if err := store.InsertTask(ctx, principal.UserID, task); err != nil {
			return failStore(c, err, "Task not found")
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		principal, err := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(authStatus(err), messageResponse{Message: err.Error()})
		}

		var patch domain.TaskPatch
		if err := decodeStrict(c.Request().Body, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}

		task, err := store.GetTask(ctx, principal.UserID, c.Param("id"))
		if err != nil {
			return failStore(c, err, "Task not found")
		}

		task.Apply(patch)
		// An explicit empty status snaps to backlog. A record that predates the
		// status column keeps its empty value when the patch leaves status
		// alone; only the display value is validated, so an edit of unrelated
		// fields never rewrites status in storage.
		if patch.Status != nil && task.Status == "" {
			task.Status = domain.StatusBacklog
		}
		stored := task.Status
		task.Status = domain.DisplayStatus(stored)
		if err := task.Validate(); err != nil {
			return failValidation(c, err)
		}
		task.Status = stored

		now := time.Now().UTC()
		if !now.After(task.UpdatedAt) {
			now = task.UpdatedAt.Add(time.Microsecond)
		}
		task.UpdatedAt = now

		if err := store.UpdateTask(ctx, principal.UserID, task); err != nil {
			return failStore(c, err, "Task not found")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		principal, err := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(authStatus(err), messageResponse{Message: err.Error()})
		}

		if err := store.DeleteTask(ctx, principal.UserID, c.Param("id")); err != nil {
			return failStore(c, err, "Task not found")
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
	}
}
