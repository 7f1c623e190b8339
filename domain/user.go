package domain

import (
	"strings"
	"time"
	"unicode"
)

// User is a registered account. The password hash is opaque to everything
// outside the auth handlers and never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
}

// UserSummary is the public shape used by the team header and registration
// responses.
type UserSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Initials  string    `json:"initials"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary derives the public view, falling back to the username when no full
// name was provided.
func (u User) Summary() UserSummary {
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  name,
		Initials:  Initials(name),
		CreatedAt: u.CreatedAt,
	}
}

// Initials derives an avatar label: the first letter of up to two
// space-separated tokens, uppercased. Empty names get a placeholder.
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, tok := range strings.Fields(name) {
		initials = append(initials, unicode.ToUpper([]rune(tok)[0]))
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "?"
	}
	return string(initials)
}

// WelcomeEmail is the payload queued for the mail worker after registration.
type WelcomeEmail struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
