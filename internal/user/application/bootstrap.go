package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/platform/roles"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// Bootstrap default super admin credentials. The password must be
// changed after the first login.
const (
	superAdminUsername = roles.SuperAdmin
	superAdminPassword = "super_admin"
	superAdminEmail    = "super_admin@system.local"
)

// EnsureSuperAdmin creates the bootstrap super admin account if it does
// not exist yet. Called once at startup.
func EnsureSuperAdmin(ctx context.Context, users domain.Repository, perms PermissionClient, hasher PasswordHasher, ids IDGenerator) error {
	exists, err := users.ExistsByUsername(ctx, superAdminUsername)
	if err != nil {
		return fmt.Errorf("failed to check super admin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := hasher.Hash(superAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash super admin password: %w", err)
	}

	user, err := domain.NewUser(ids.NextID(), superAdminUsername, superAdminEmail, "", hash)
	if err != nil {
		return fmt.Errorf("failed to build super admin: %w", err)
	}

	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create super admin: %w", err)
	}

	if err := perms.BindSuperAdminRole(ctx, user.UserID); err != nil {
		return fmt.Errorf("failed to bind super admin role: %w", err)
	}

	log.Warn().
		Int64("user_id", user.UserID).
		Msg("Bootstrap super admin created with default password, change it immediately")

	return nil
}
