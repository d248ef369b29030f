// Package application implements the user-service use cases.
package application

import (
	"context"

	"github.com/digitlabs/pm-sys/internal/oplog"
)

// PermissionClient is the user service's view of the permission
// service.
type PermissionClient interface {
	BindDefaultRole(ctx context.Context, userID int64) error
	BindSuperAdminRole(ctx context.Context, userID int64) error
	GetUserRole(ctx context.Context, userID int64) (string, error)
	GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error)
}

// AuditPublisher sends operation-log messages to the broker.
type AuditPublisher interface {
	Publish(ctx context.Context, msg oplog.Message) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// IDGenerator mints user identifiers.
type IDGenerator interface {
	NextID() int64
}
