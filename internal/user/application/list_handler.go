package application

import (
	"context"
	"fmt"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// UserSummary is one row of a listing response. Timestamps use the
// yyyy-MM-dd HH:mm:ss wire format.
type UserSummary struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	GmtCreate   string `json:"gmtCreate"`
	GmtModified string `json:"gmtModified"`
}

// ListResult is the listing response payload. The page fields sit
// beside the rows, not under a nested object.
type ListResult struct {
	Users []UserSummary `json:"users"`
	PageMeta
}

// ListUsersHandler serves the role-aware paginated user listing.
type ListUsersHandler struct {
	users domain.Repository
	perms PermissionClient
}

// NewListUsersHandler creates the handler.
func NewListUsersHandler(users domain.Repository, perms PermissionClient) *ListUsersHandler {
	return &ListUsersHandler{users: users, perms: perms}
}

// Handle validates the query, resolves the caller's visibility and
// returns one page of users. Any permission-service failure aborts the
// request; visibility is never silently widened.
func (h *ListUsersHandler) Handle(ctx context.Context, callerID int64, raw RawListQuery) (*ListResult, error) {
	params, err := parseListQuery(raw)
	if err != nil {
		return nil, err
	}

	excluded, err := h.resolveExclusions(ctx, callerID)
	if err != nil {
		return nil, err
	}
	params.ExcludedIDs = excluded

	users, total, err := h.users.List(ctx, params)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}

	result := &ListResult{
		Users:    make([]UserSummary, 0, len(users)),
		PageMeta: NewPageMeta(params.Page, params.PageSize, total),
	}
	for _, u := range users {
		result.Users = append(result.Users, UserSummary{
			UserID:      u.UserID,
			Username:    u.Username,
			Email:       u.Email,
			Phone:       u.Phone,
			GmtCreate:   u.GmtCreate.Format(timeLayout),
			GmtModified: u.GmtModified.Format(timeLayout),
		})
	}
	return result, nil
}

// resolveExclusions maps the caller's role onto the set of user IDs
// hidden from the listing. Super admins see everyone but themselves;
// admins additionally never see other administrative accounts.
func (h *ListUsersHandler) resolveExclusions(ctx context.Context, callerID int64) ([]int64, error) {
	role, err := h.perms.GetUserRole(ctx, callerID)
	if err != nil {
		return nil, apperr.Dependency("permission service unavailable", err)
	}

	switch role {
	case roles.SuperAdmin:
		return []int64{callerID}, nil
	case roles.Admin:
		adminIDs, err := h.perms.GetUserIDsByRoles(ctx, []string{roles.SuperAdmin, roles.Admin})
		if err != nil {
			return nil, apperr.Dependency("permission service unavailable", err)
		}

		excluded := make([]int64, 0, len(adminIDs)+1)
		seen := map[int64]bool{}
		for _, id := range append(adminIDs, callerID) {
			if !seen[id] {
				seen[id] = true
				excluded = append(excluded, id)
			}
		}
		return excluded, nil
	default:
		return nil, apperr.PermissionDenied(fmt.Sprintf("role %q may not list users", role))
	}
}
