// Package domain holds the role model and repository contracts of the
// permission service.
package domain

import (
	"context"
	"errors"
	"time"
)

// Domain-specific errors.
var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrBindingNotFound = errors.New("role binding not found")
	ErrAlreadyBound    = errors.New("user already has a role")
)

// Role is a seeded role definition.
type Role struct {
	RoleID int64
	Code   string
	Name   string
}

// Binding assigns one role to one user. A user holds exactly one role.
type Binding struct {
	UserID      int64
	RoleID      int64
	GmtCreate   time.Time
	GmtModified time.Time
}

// RoleRepository reads the seeded role set.
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

// BindingRepository persists user-role assignments.
type BindingRepository interface {
	// Bind creates the user's binding; ErrAlreadyBound if one exists.
	Bind(ctx context.Context, userID, roleID int64) error
	// Rebind replaces the user's binding; ErrBindingNotFound if absent.
	Rebind(ctx context.Context, userID, roleID int64) error
	// GetRole returns the role currently bound to the user.
	GetRole(ctx context.Context, userID int64) (*Role, error)
	// ListUserIDsByRoleCodes returns all holders of any listed role.
	ListUserIDsByRoleCodes(ctx context.Context, codes []string) ([]int64, error)
	// CountByRoleCode returns how many users hold the role.
	CountByRoleCode(ctx context.Context, code string) (int64, error)
}
