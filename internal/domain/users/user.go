package users

import (
	"errors"
	"strings"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a rejected input field.
type ValidationError = validate.FieldError

// User is a registered account. Email is stored trimmed and lower-cased.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	PasswordHash   string
	School         string
	GradeLevel     string
	Gender         string
	Interests      []string
	Bio            *string
	ProfilePicture *string
	CreatedAt      time.Time
}

// Name is the display name shown to other users.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail is applied before every store write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
