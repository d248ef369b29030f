// Package domain holds the user aggregate and its repository contract.
package domain

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// Domain-specific errors.
var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicate       = errors.New("username or email already exists")
	ErrInvalidUsername = errors.New("username must be 3-50 characters, alphanumeric with underscores, starting with a letter")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidPhone    = errors.New("phone must be 6-20 digits, optionally prefixed with +")
	ErrEmptyPassword   = errors.New("password hash cannot be empty")
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,49}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9]{6,20}$`)
)

// User is the aggregate persisted in the users table.
type User struct {
	UserID       int64
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	GmtCreate    time.Time
	GmtModified  time.Time
}

// NewUser validates the identity fields and builds a User. Phone is
// optional.
func NewUser(id int64, username, email, phone, passwordHash string) (*User, error) {
	if !usernameRegex.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if phone != "" && !phoneRegex.MatchString(phone) {
		return nil, ErrInvalidPhone
	}
	if passwordHash == "" {
		return nil, ErrEmptyPassword
	}

	now := time.Now()
	return &User{
		UserID:       id,
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		GmtCreate:    now,
		GmtModified:  now,
	}, nil
}

// ValidEmail reports whether s is an acceptable email address.
func ValidEmail(s string) bool { return emailRegex.MatchString(s) }

// ValidPhone reports whether s is an acceptable phone number.
func ValidPhone(s string) bool { return phoneRegex.MatchString(s) }

// Repository defines user persistence operations.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListParams) ([]*User, int64, error)
}
