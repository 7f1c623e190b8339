package api

import (
	"io"

	"github.com/bytedance/sonic"

	"autoops-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// messageResponse is the uniform error/confirmation body.
type messageResponse struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type registerResponse struct {
	Message string             `json:"message"`
	User    domain.UserSummary `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

type createTaskRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	TaskID      string `json:"taskId"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// decodeStrict reads a size-limited JSON body and rejects unknown fields so
// malformed or misspelled payloads fail loudly instead of silently dropping
// data.
func decodeStrict(r io.Reader, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r, requestBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
