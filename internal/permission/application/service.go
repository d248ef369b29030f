// Package application implements the permission-service use cases.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/permission/domain"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
)

// RoleCache caches user-role lookups. All methods degrade gracefully;
// a broken cache must never break a permission check.
type RoleCache interface {
	Get(ctx context.Context, userID int64) (string, bool)
	Set(ctx context.Context, userID int64, roleCode string)
	Invalidate(ctx context.Context, userID int64)
}

// AuditPublisher sends operation-log messages to the broker.
type AuditPublisher interface {
	Publish(ctx context.Context, msg oplog.Message) error
}

// RequestMeta carries the per-request audit fields.
type RequestMeta struct {
	TraceID string
	IP      string
}

// Service answers role queries and manages role transitions.
type Service struct {
	roleRepo    domain.RoleRepository
	bindingRepo domain.BindingRepository
	cache       RoleCache
	audit       AuditPublisher
}

// NewService creates the Service.
func NewService(roleRepo domain.RoleRepository, bindingRepo domain.BindingRepository, cache RoleCache, audit AuditPublisher) *Service {
	return &Service{roleRepo: roleRepo, bindingRepo: bindingRepo, cache: cache, audit: audit}
}

// BindDefaultRole assigns the regular user role to a fresh account.
func (s *Service) BindDefaultRole(ctx context.Context, userID int64) error {
	return s.bindNew(ctx, userID, roles.User)
}

// BindSuperAdmin assigns the super admin role. Only one account may
// hold it; subsequent calls conflict.
func (s *Service) BindSuperAdmin(ctx context.Context, userID int64) error {
	holders, err := s.bindingRepo.CountByRoleCode(ctx, roles.SuperAdmin)
	if err != nil {
		return apperr.Internal("failed to count super admins", err)
	}
	if holders > 0 {
		return apperr.Conflict("super admin role is already bound")
	}
	return s.bindNew(ctx, userID, roles.SuperAdmin)
}

func (s *Service) bindNew(ctx context.Context, userID int64, roleCode string) error {
	role, err := s.roleRepo.GetByCode(ctx, roleCode)
	if err != nil {
		return apperr.Internal("failed to load role", err)
	}

	if err := s.bindingRepo.Bind(ctx, userID, role.RoleID); err != nil {
		if errors.Is(err, domain.ErrAlreadyBound) {
			return apperr.Conflict("user already has a role")
		}
		return apperr.Internal("failed to bind role", err)
	}

	s.cache.Invalidate(ctx, userID)
	return nil
}

// GetUserRole returns the role code bound to the user, consulting the
// cache first.
func (s *Service) GetUserRole(ctx context.Context, userID int64) (string, error) {
	if code, ok := s.cache.Get(ctx, userID); ok {
		return code, nil
	}

	role, err := s.bindingRepo.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrBindingNotFound) {
			return "", apperr.NotFound("role binding not found")
		}
		return "", apperr.Internal("failed to load role binding", err)
	}

	s.cache.Set(ctx, userID, role.Code)
	return role.Code, nil
}

// GetUserIDsByRoles returns all holders of the listed roles. Unknown
// codes are rejected rather than silently ignored.
func (s *Service) GetUserIDsByRoles(ctx context.Context, codes []string) ([]int64, error) {
	if len(codes) == 0 {
		return nil, apperr.Validation("at least one role code is required")
	}
	for _, code := range codes {
		if !roles.Known(code) {
			return nil, apperr.Validationf("unknown role code %q", code)
		}
	}

	ids, err := s.bindingRepo.ListUserIDsByRoleCodes(ctx, codes)
	if err != nil {
		return nil, apperr.Internal("failed to list role holders", err)
	}
	return ids, nil
}

// ListRoles returns the seeded role definitions.
func (s *Service) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	list, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list roles", err)
	}
	return list, nil
}

// Upgrade promotes a regular user to admin. Only the super admin may
// perform role transitions.
func (s *Service) Upgrade(ctx context.Context, operatorID, targetID int64, meta RequestMeta) error {
	return s.transition(ctx, operatorID, targetID, roles.User, roles.Admin, oplog.ActionUpgradeRole, meta)
}

// Downgrade demotes an admin back to regular user.
func (s *Service) Downgrade(ctx context.Context, operatorID, targetID int64, meta RequestMeta) error {
	return s.transition(ctx, operatorID, targetID, roles.Admin, roles.User, oplog.ActionDowngradeRole, meta)
}

func (s *Service) transition(ctx context.Context, operatorID, targetID int64, fromCode, toCode, action string, meta RequestMeta) error {
	if operatorID == targetID {
		return apperr.Validation("cannot change your own role")
	}

	operatorRole, err := s.GetUserRole(ctx, operatorID)
	if err != nil {
		return err
	}
	if operatorRole != roles.SuperAdmin {
		return apperr.PermissionDenied("only the super admin may change roles")
	}

	current, err := s.bindingRepo.GetRole(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrBindingNotFound) {
			return apperr.NotFound("role binding not found")
		}
		return apperr.Internal("failed to load role binding", err)
	}
	if current.Code != fromCode {
		return apperr.Conflict(fmt.Sprintf("user holds role %q, expected %q", current.Code, fromCode))
	}

	target, err := s.roleRepo.GetByCode(ctx, toCode)
	if err != nil {
		return apperr.Internal("failed to load role", err)
	}
	if err := s.bindingRepo.Rebind(ctx, targetID, target.RoleID); err != nil {
		return apperr.Internal("failed to rebind role", err)
	}

	s.cache.Invalidate(ctx, targetID)
	s.publishAudit(targetID, action, fmt.Sprintf("role changed from %s to %s by user %d", fromCode, toCode, operatorID), meta)
	return nil
}

func (s *Service) publishAudit(userID int64, action, detail string, meta RequestMeta) {
	msg := oplog.Message{
		UserID:    userID,
		TraceID:   meta.TraceID,
		Action:    action,
		IP:        meta.IP,
		Detail:    detail,
		GmtCreate: oplog.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Publish(ctx, msg); err != nil {
			log.Warn().Err(err).Str("action", action).Msg("Failed to publish operation log")
		}
	}()
}
