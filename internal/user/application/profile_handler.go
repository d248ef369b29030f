package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// Profile is the caller-facing view of an account.
type Profile struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	GmtCreate   string `json:"gmtCreate"`
	GmtModified string `json:"gmtModified"`
}

// ProfileHandler serves reads and updates of the caller's own account.
type ProfileHandler struct {
	users domain.Repository
	perms PermissionClient
	audit AuditPublisher
}

// NewProfileHandler creates the handler.
func NewProfileHandler(users domain.Repository, perms PermissionClient, audit AuditPublisher) *ProfileHandler {
	return &ProfileHandler{users: users, perms: perms, audit: audit}
}

// Get returns the profile of the given user, including the role held
// in the permission service.
func (h *ProfileHandler) Get(ctx context.Context, userID int64) (*Profile, error) {
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	role, err := h.perms.GetUserRole(ctx, userID)
	if err != nil {
		return nil, apperr.Dependency("permission service unavailable", err)
	}

	return &Profile{
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		Phone:       user.Phone,
		Role:        role,
		GmtCreate:   user.GmtCreate.Format(timeLayout),
		GmtModified: user.GmtModified.Format(timeLayout),
	}, nil
}

// UpdateCommand carries a profile update. Empty fields are left
// unchanged.
type UpdateCommand struct {
	UserID int64
	Email  string
	Phone  string
	Meta   RequestMeta
}

// Update changes the caller's contact details.
func (h *ProfileHandler) Update(ctx context.Context, cmd UpdateCommand) (*Profile, error) {
	if cmd.Email == "" && cmd.Phone == "" {
		return nil, apperr.Validation("no fields to update")
	}
	if cmd.Email != "" && !domain.ValidEmail(cmd.Email) {
		return nil, apperr.Validation("invalid email format")
	}
	if cmd.Phone != "" && !domain.ValidPhone(cmd.Phone) {
		return nil, apperr.Validation("invalid phone format")
	}

	user, err := h.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	changes := []string{}
	if cmd.Email != "" && cmd.Email != user.Email {
		taken, err := h.users.ExistsByEmail(ctx, cmd.Email)
		if err != nil {
			return nil, apperr.Internal("failed to check email", err)
		}
		if taken {
			return nil, apperr.Conflict("email already exists")
		}
		changes = append(changes, fmt.Sprintf("email: %s -> %s", user.Email, cmd.Email))
		user.Email = cmd.Email
	}
	if cmd.Phone != "" && cmd.Phone != user.Phone {
		changes = append(changes, fmt.Sprintf("phone: %s -> %s", user.Phone, cmd.Phone))
		user.Phone = cmd.Phone
	}

	if len(changes) > 0 {
		if err := h.users.UpdateProfile(ctx, user); err != nil {
			return nil, apperr.Internal("failed to update user", err)
		}
		publishAudit(h.audit, user.UserID, oplog.ActionUpdateUserInfo,
			strings.Join(changes, "; "), cmd.Meta)
	}

	return h.Get(ctx, cmd.UserID)
}
