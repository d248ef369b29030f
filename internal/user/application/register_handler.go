package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit
)

// RegisterCommand carries a registration request.
type RegisterCommand struct {
	Username string
	Email    string
	Phone    string
	Password string
	Meta     RequestMeta
}

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// RegisterHandler creates new accounts and binds them to the default
// role.
type RegisterHandler struct {
	users  domain.Repository
	perms  PermissionClient
	hasher PasswordHasher
	ids    IDGenerator
	audit  AuditPublisher
}

// NewRegisterHandler creates the handler.
func NewRegisterHandler(users domain.Repository, perms PermissionClient, hasher PasswordHasher, ids IDGenerator, audit AuditPublisher) *RegisterHandler {
	return &RegisterHandler{users: users, perms: perms, hasher: hasher, ids: ids, audit: audit}
}

// Handle registers a user. The account is deleted again if the default
// role cannot be bound, so no user exists without a role.
func (h *RegisterHandler) Handle(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
	if len(cmd.Password) < minPasswordLength {
		return nil, apperr.Validationf("password must be at least %d characters", minPasswordLength)
	}
	if len(cmd.Password) > maxPasswordLength {
		return nil, apperr.Validationf("password must be at most %d characters", maxPasswordLength)
	}

	taken, err := h.users.ExistsByUsername(ctx, cmd.Username)
	if err != nil {
		return nil, apperr.Internal("failed to check username", err)
	}
	if taken {
		return nil, apperr.Conflict("username already exists")
	}

	taken, err = h.users.ExistsByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, apperr.Internal("failed to check email", err)
	}
	if taken {
		return nil, apperr.Conflict("email already exists")
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user, err := domain.NewUser(h.ids.NextID(), cmd.Username, cmd.Email, cmd.Phone, hash)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	if err := h.users.Create(ctx, user); err != nil {
		// A concurrent registration may win the insert race after the
		// existence checks passed.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict(domain.ErrDuplicate.Error())
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	if err := h.perms.BindDefaultRole(ctx, user.UserID); err != nil {
		// Roll the account back so registration stays atomic across
		// both services.
		if delErr := h.users.Delete(ctx, user.UserID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
			log.Error().
				Err(delErr).
				Int64("user_id", user.UserID).
				Msg("Failed to roll back user after role binding failure")
		}
		return nil, apperr.Dependency("failed to bind default role", err)
	}

	publishAudit(h.audit, user.UserID, oplog.ActionRegister,
		fmt.Sprintf("user %s registered", user.Username), cmd.Meta)

	return &RegisterResult{UserID: user.UserID, Username: user.Username}, nil
}
