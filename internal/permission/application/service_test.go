package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/permission/domain"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
)

type mockRoleRepo struct {
	mock.Mock
}

func (m *mockRoleRepo) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepo) List(ctx context.Context) ([]*domain.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Role), args.Error(1)
}

type mockBindingRepo struct {
	mock.Mock
}

func (m *mockBindingRepo) Bind(ctx context.Context, userID, roleID int64) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *mockBindingRepo) Rebind(ctx context.Context, userID, roleID int64) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *mockBindingRepo) GetRole(ctx context.Context, userID int64) (*domain.Role, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockBindingRepo) ListUserIDsByRoleCodes(ctx context.Context, codes []string) ([]int64, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockBindingRepo) CountByRoleCode(ctx context.Context, code string) (int64, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(int64), args.Error(1)
}

// memCache is a map-backed RoleCache.
type memCache struct {
	mu    sync.Mutex
	items map[int64]string
}

func newMemCache() *memCache {
	return &memCache{items: map[int64]string{}}
}

func (c *memCache) Get(ctx context.Context, userID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.items[userID]
	return code, ok
}

func (c *memCache) Set(ctx context.Context, userID int64, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[userID] = code
}

func (c *memCache) Invalidate(ctx context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
}

type noopAudit struct{}

func (noopAudit) Publish(ctx context.Context, msg oplog.Message) error { return nil }

var (
	roleUser       = &domain.Role{RoleID: 1, Code: roles.User, Name: "User"}
	roleAdmin      = &domain.Role{RoleID: 2, Code: roles.Admin, Name: "Administrator"}
	roleSuperAdmin = &domain.Role{RoleID: 3, Code: roles.SuperAdmin, Name: "Super Administrator"}
)

func newService(roleRepo *mockRoleRepo, bindingRepo *mockBindingRepo, cache RoleCache) *Service {
	return NewService(roleRepo, bindingRepo, cache, noopAudit{})
}

func TestBindDefaultRole(t *testing.T) {
	t.Run("binds the user role", func(t *testing.T) {
		roleRepo := new(mockRoleRepo)
		bindingRepo := new(mockBindingRepo)
		s := newService(roleRepo, bindingRepo, newMemCache())

		roleRepo.On("GetByCode", mock.Anything, roles.User).Return(roleUser, nil)
		bindingRepo.On("Bind", mock.Anything, int64(10), int64(1)).Return(nil)

		require.NoError(t, s.BindDefaultRole(context.Background(), 10))
		bindingRepo.AssertExpectations(t)
	})

	t.Run("conflict when already bound", func(t *testing.T) {
		roleRepo := new(mockRoleRepo)
		bindingRepo := new(mockBindingRepo)
		s := newService(roleRepo, bindingRepo, newMemCache())

		roleRepo.On("GetByCode", mock.Anything, roles.User).Return(roleUser, nil)
		bindingRepo.On("Bind", mock.Anything, int64(10), int64(1)).Return(domain.ErrAlreadyBound)

		err := s.BindDefaultRole(context.Background(), 10)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestBindSuperAdminSingleton(t *testing.T) {
	roleRepo := new(mockRoleRepo)
	bindingRepo := new(mockBindingRepo)
	s := newService(roleRepo, bindingRepo, newMemCache())

	bindingRepo.On("CountByRoleCode", mock.Anything, roles.SuperAdmin).Return(int64(1), nil)

	err := s.BindSuperAdmin(context.Background(), 99)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	bindingRepo.AssertNotCalled(t, "Bind", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetUserRoleCaching(t *testing.T) {
	roleRepo := new(mockRoleRepo)
	bindingRepo := new(mockBindingRepo)
	cache := newMemCache()
	s := newService(roleRepo, bindingRepo, cache)

	bindingRepo.On("GetRole", mock.Anything, int64(10)).Return(roleAdmin, nil).Once()

	code, err := s.GetUserRole(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, code)

	// Second lookup is served from cache; the single mock Once above
	// would fail if the repo were hit again.
	code, err = s.GetUserRole(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, code)
	bindingRepo.AssertExpectations(t)
}

func TestGetUserRoleMissingBinding(t *testing.T) {
	roleRepo := new(mockRoleRepo)
	bindingRepo := new(mockBindingRepo)
	s := newService(roleRepo, bindingRepo, newMemCache())

	bindingRepo.On("GetRole", mock.Anything, int64(404)).Return(nil, domain.ErrBindingNotFound)

	_, err := s.GetUserRole(context.Background(), 404)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGetUserIDsByRoles(t *testing.T) {
	t.Run("rejects unknown role codes", func(t *testing.T) {
		s := newService(new(mockRoleRepo), new(mockBindingRepo), newMemCache())
		_, err := s.GetUserIDsByRoles(context.Background(), []string{"root"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("rejects empty code list", func(t *testing.T) {
		s := newService(new(mockRoleRepo), new(mockBindingRepo), newMemCache())
		_, err := s.GetUserIDsByRoles(context.Background(), nil)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("returns holders", func(t *testing.T) {
		bindingRepo := new(mockBindingRepo)
		s := newService(new(mockRoleRepo), bindingRepo, newMemCache())

		codes := []string{roles.SuperAdmin, roles.Admin}
		bindingRepo.On("ListUserIDsByRoleCodes", mock.Anything, codes).Return([]int64{1, 5}, nil)

		ids, err := s.GetUserIDsByRoles(context.Background(), codes)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 5}, ids)
	})
}

func TestUpgrade(t *testing.T) {
	meta := RequestMeta{TraceID: "t", IP: "127.0.0.1"}

	t.Run("super admin promotes a user", func(t *testing.T) {
		roleRepo := new(mockRoleRepo)
		bindingRepo := new(mockBindingRepo)
		cache := newMemCache()
		s := newService(roleRepo, bindingRepo, cache)

		cache.Set(context.Background(), 1, roles.SuperAdmin)
		cache.Set(context.Background(), 10, roles.User)
		bindingRepo.On("GetRole", mock.Anything, int64(10)).Return(roleUser, nil)
		roleRepo.On("GetByCode", mock.Anything, roles.Admin).Return(roleAdmin, nil)
		bindingRepo.On("Rebind", mock.Anything, int64(10), int64(2)).Return(nil)

		require.NoError(t, s.Upgrade(context.Background(), 1, 10, meta))

		_, cached := cache.Get(context.Background(), 10)
		assert.False(t, cached, "target's cached role must be invalidated")
		bindingRepo.AssertExpectations(t)
	})

	t.Run("admin may not promote", func(t *testing.T) {
		cache := newMemCache()
		s := newService(new(mockRoleRepo), new(mockBindingRepo), cache)
		cache.Set(context.Background(), 5, roles.Admin)

		err := s.Upgrade(context.Background(), 5, 10, meta)
		assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
	})

	t.Run("promoting an admin conflicts", func(t *testing.T) {
		bindingRepo := new(mockBindingRepo)
		cache := newMemCache()
		s := newService(new(mockRoleRepo), bindingRepo, cache)

		cache.Set(context.Background(), 1, roles.SuperAdmin)
		bindingRepo.On("GetRole", mock.Anything, int64(10)).Return(roleAdmin, nil)

		err := s.Upgrade(context.Background(), 1, 10, meta)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("self transition rejected", func(t *testing.T) {
		s := newService(new(mockRoleRepo), new(mockBindingRepo), newMemCache())
		err := s.Upgrade(context.Background(), 1, 1, meta)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestDowngrade(t *testing.T) {
	meta := RequestMeta{}

	t.Run("super admin demotes an admin", func(t *testing.T) {
		roleRepo := new(mockRoleRepo)
		bindingRepo := new(mockBindingRepo)
		cache := newMemCache()
		s := newService(roleRepo, bindingRepo, cache)

		cache.Set(context.Background(), 1, roles.SuperAdmin)
		bindingRepo.On("GetRole", mock.Anything, int64(5)).Return(roleAdmin, nil)
		roleRepo.On("GetByCode", mock.Anything, roles.User).Return(roleUser, nil)
		bindingRepo.On("Rebind", mock.Anything, int64(5), int64(1)).Return(nil)

		require.NoError(t, s.Downgrade(context.Background(), 1, 5, meta))
	})

	t.Run("demoting a regular user conflicts", func(t *testing.T) {
		bindingRepo := new(mockBindingRepo)
		cache := newMemCache()
		s := newService(new(mockRoleRepo), bindingRepo, cache)

		cache.Set(context.Background(), 1, roles.SuperAdmin)
		bindingRepo.On("GetRole", mock.Anything, int64(10)).Return(roleUser, nil)

		err := s.Downgrade(context.Background(), 1, 10, meta)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}
