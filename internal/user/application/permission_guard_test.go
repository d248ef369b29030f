package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitlabs/pm-sys/pkg/circuitbreaker"
)

var errPermDown = errors.New("connection refused")

// countingPermClient fails every call and counts how many reach it.
type countingPermClient struct {
	calls int
}

func (c *countingPermClient) BindDefaultRole(ctx context.Context, userID int64) error {
	c.calls++
	return errPermDown
}

func (c *countingPermClient) BindSuperAdminRole(ctx context.Context, userID int64) error {
	c.calls++
	return errPermDown
}

func (c *countingPermClient) GetUserRole(ctx context.Context, userID int64) (string, error) {
	c.calls++
	return "", errPermDown
}

func (c *countingPermClient) GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error) {
	c.calls++
	return nil, errPermDown
}

func TestGuardPermissionClient(t *testing.T) {
	t.Run("failures across methods open one shared breaker", func(t *testing.T) {
		inner := &countingPermClient{}
		guarded := GuardPermissionClient(inner)
		settings := circuitbreaker.DefaultSettings("permission-service")

		ctx := context.Background()
		for i := 0; i < settings.MaxFailures; i++ {
			var err error
			if i%2 == 0 {
				_, err = guarded.GetUserRole(ctx, 1)
			} else {
				err = guarded.BindDefaultRole(ctx, 1)
			}
			require.ErrorIs(t, err, errPermDown)
		}
		assert.Equal(t, settings.MaxFailures, inner.calls)

		_, err := guarded.GetUserIDsByRoles(ctx, []string{"admin"})
		assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
		assert.Equal(t, settings.MaxFailures, inner.calls)
	})

	t.Run("successful calls pass through", func(t *testing.T) {
		guarded := GuardPermissionClient(passthroughPerms{})

		role, err := guarded.GetUserRole(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "user", role)
	})
}

type passthroughPerms struct{}

func (passthroughPerms) BindDefaultRole(ctx context.Context, userID int64) error    { return nil }
func (passthroughPerms) BindSuperAdminRole(ctx context.Context, userID int64) error { return nil }

func (passthroughPerms) GetUserRole(ctx context.Context, userID int64) (string, error) {
	return "user", nil
}

func (passthroughPerms) GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error) {
	return []int64{}, nil
}
