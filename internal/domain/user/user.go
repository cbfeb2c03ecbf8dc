package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// DateLayout is the wire and storage format of a date of birth.
const DateLayout = "2006-01-02"

// User is a directory entry. Email may be empty or malformed for rows that
// predate validation, so readers must not trust it.
type User struct {
	ID          int64
	Name        string
	Email       string
	DateOfBirth time.Time
	CreatedAt   time.Time
}

// NewUser is the validated input record for creating a directory entry.
type NewUser struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Email       string `json:"email" validate:"required,email,max=320"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}
