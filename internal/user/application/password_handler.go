package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// DefaultResetPassword is the credential assigned by an administrative
// reset. Users are expected to change it on first login.
const DefaultResetPassword = "123456"

// PasswordHandler serves self-service password changes and
// administrative resets.
type PasswordHandler struct {
	users  domain.Repository
	perms  PermissionClient
	hasher PasswordHasher
	audit  AuditPublisher
}

// NewPasswordHandler creates the handler.
func NewPasswordHandler(users domain.Repository, perms PermissionClient, hasher PasswordHasher, audit AuditPublisher) *PasswordHandler {
	return &PasswordHandler{users: users, perms: perms, hasher: hasher, audit: audit}
}

// ChangeCommand carries a self-service password change.
type ChangeCommand struct {
	UserID      int64
	OldPassword string
	NewPassword string
	Meta        RequestMeta
}

// Change verifies the old password and stores the new one.
func (h *PasswordHandler) Change(ctx context.Context, cmd ChangeCommand) error {
	if len(cmd.NewPassword) < minPasswordLength {
		return apperr.Validationf("password must be at least %d characters", minPasswordLength)
	}
	if len(cmd.NewPassword) > maxPasswordLength {
		return apperr.Validationf("password must be at most %d characters", maxPasswordLength)
	}
	if cmd.NewPassword == cmd.OldPassword {
		return apperr.Validation("new password must differ from the old password")
	}

	user, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to load user", err)
	}

	if err := h.hasher.Compare(user.PasswordHash, cmd.OldPassword); err != nil {
		return apperr.Validation("old password is incorrect")
	}

	hash, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	if err := h.users.UpdatePassword(ctx, cmd.UserID, hash); err != nil {
		return apperr.Internal("failed to update password", err)
	}

	publishAudit(h.audit, cmd.UserID, oplog.ActionChangePassword, "password changed", cmd.Meta)
	return nil
}

// ResetCommand carries an administrative password reset.
type ResetCommand struct {
	OperatorID   int64
	TargetUserID int64
	Meta         RequestMeta
}

// Reset sets the target's password back to the default. Super admins
// may reset anyone but themselves through this endpoint; admins may
// only reset regular users.
func (h *PasswordHandler) Reset(ctx context.Context, cmd ResetCommand) error {
	if cmd.OperatorID == cmd.TargetUserID {
		return apperr.Validation("use the password change endpoint for your own account")
	}

	operatorRole, err := h.perms.GetUserRole(ctx, cmd.OperatorID)
	if err != nil {
		return apperr.Dependency("permission service unavailable", err)
	}
	if !roles.IsAdministrative(operatorRole) {
		return apperr.PermissionDenied("administrative role required")
	}

	if _, err := h.users.GetByID(ctx, cmd.TargetUserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to load user", err)
	}

	targetRole, err := h.perms.GetUserRole(ctx, cmd.TargetUserID)
	if err != nil {
		return apperr.Dependency("permission service unavailable", err)
	}
	if operatorRole == roles.Admin && targetRole != roles.User {
		return apperr.PermissionDenied("admins may only reset regular users")
	}

	hash, err := h.hasher.Hash(DefaultResetPassword)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}
	if err := h.users.UpdatePassword(ctx, cmd.TargetUserID, hash); err != nil {
		return apperr.Internal("failed to update password", err)
	}

	publishAudit(h.audit, cmd.TargetUserID, oplog.ActionResetPassword,
		fmt.Sprintf("password reset by user %d", cmd.OperatorID), cmd.Meta)
	return nil
}
