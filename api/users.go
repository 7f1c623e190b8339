package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"autoops-api/domain"
)

const minPasswordLength = 6

func registerUser(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req registerRequest
		if err := decodeStrict(c.Request().Body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Username == "" || req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Username, email, and password are required"})
		}
		if len(req.Password) < minPasswordLength {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Password must be at least 6 characters"})
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error during registration"})
		}

		user := domain.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			FullName:     req.FullName,
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return c.JSON(http.StatusBadRequest, messageResponse{Message: "Username or email already exists"})
			}
			if errors.Is(err, domain.ErrUnavailable) {
				return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Database connection unavailable"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error during registration"})
		}

		summary := user.Summary()
		queueWelcomeEmail(store, logger, domain.WelcomeEmail{Email: user.Email, Name: summary.FullName})

		return c.JSON(http.StatusCreated, registerResponse{Message: "User registered successfully", User: summary})
	}
}

func loginUser(store Storage, issuer TokenIssuer, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req loginRequest
		if err := decodeStrict(c.Request().Body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}
		if req.Username == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Username and password are required"})
		}

		user, err := store.UserByUsername(ctx, req.Username)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Same message as a wrong password so usernames cannot be probed.
				return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid username or password"})
			}
			if errors.Is(err, domain.ErrUnavailable) {
				return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Database connection unavailable"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error during login"})
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid username or password"})
		}

		if err := store.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
			logger.WithError(err).Warn("failed to update last login")
		}

		token, err := issuer.IssueToken(user.ID, user.Username)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Server error during login"})
		}

		return c.JSON(http.StatusOK, loginResponse{
			Message:  "Login successful",
			Token:    token,
			UserID:   user.ID,
			Username: user.Username,
			FullName: user.FullName,
		})
	}
}

func currentUser(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		principal, err := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(authStatus(err), messageResponse{Message: err.Error()})
		}

		user, err := store.UserByID(ctx, principal.UserID)
		if err != nil {
			return failStore(c, err, "User not found")
		}
		return c.JSON(http.StatusOK, userResponse{User: user})
	}
}

func listUsers(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.PrincipalFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(authStatus(err), messageResponse{Message: err.Error()})
		}

		users, err := store.FetchUsers(ctx)
		if err != nil {
			return failStore(c, err, "User not found")
		}

		sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
		summaries := make([]domain.UserSummary, 0, len(users))
		for _, u := range users {
			summaries = append(summaries, u.Summary())
		}
		return c.JSON(http.StatusOK, summaries)
	}
}
