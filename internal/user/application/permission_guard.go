package application

import (
	"context"

	"github.com/digitlabs/pm-sys/pkg/circuitbreaker"
)

// guardedPermissionClient routes every permission RPC through one
// shared circuit breaker, so a failing permission service is cut off
// for all use cases at once instead of per handler.
type guardedPermissionClient struct {
	inner   PermissionClient
	breaker *circuitbreaker.Breaker
}

// GuardPermissionClient wraps a permission client in the standard
// service-to-service breaker policy.
func GuardPermissionClient(inner PermissionClient) PermissionClient {
	return &guardedPermissionClient{
		inner:   inner,
		breaker: circuitbreaker.New(circuitbreaker.DefaultSettings("permission-service")),
	}
}

func (g *guardedPermissionClient) BindDefaultRole(ctx context.Context, userID int64) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error {
		return g.inner.BindDefaultRole(ctx, userID)
	})
}

func (g *guardedPermissionClient) BindSuperAdminRole(ctx context.Context, userID int64) error {
	return g.breaker.Do(ctx, func(ctx context.Context) error {
		return g.inner.BindSuperAdminRole(ctx, userID)
	})
}

func (g *guardedPermissionClient) GetUserRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var callErr error
		role, callErr = g.inner.GetUserRole(ctx, userID)
		return callErr
	})
	return role, err
}

func (g *guardedPermissionClient) GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error) {
	var ids []int64
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var callErr error
		ids, callErr = g.inner.GetUserIDsByRoles(ctx, roleCodes)
		return callErr
	})
	return ids, err
}
