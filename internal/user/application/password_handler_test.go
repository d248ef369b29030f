package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/roles"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

func newPasswordHandler(repo *mockUserRepo, perms *mockPermissionClient) *PasswordHandler {
	return NewPasswordHandler(repo, perms, fakeHasher{}, noopAudit{})
}

func TestChangePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := new(mockUserRepo)
		h := newPasswordHandler(repo, new(mockPermissionClient))

		repo.On("GetByID", mock.Anything, int64(42)).Return(&domain.User{
			UserID: 42, PasswordHash: "hashed:oldpass1",
		}, nil)
		repo.On("UpdatePassword", mock.Anything, int64(42), "hashed:newpass1").Return(nil)

		err := h.Change(context.Background(), ChangeCommand{
			UserID: 42, OldPassword: "oldpass1", NewPassword: "newpass1",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("wrong old password", func(t *testing.T) {
		repo := new(mockUserRepo)
		h := newPasswordHandler(repo, new(mockPermissionClient))

		repo.On("GetByID", mock.Anything, int64(42)).Return(&domain.User{
			UserID: 42, PasswordHash: "hashed:oldpass1",
		}, nil)

		err := h.Change(context.Background(), ChangeCommand{
			UserID: 42, OldPassword: "nope", NewPassword: "newpass1",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unchanged password rejected", func(t *testing.T) {
		h := newPasswordHandler(new(mockUserRepo), new(mockPermissionClient))
		err := h.Change(context.Background(), ChangeCommand{
			UserID: 42, OldPassword: "samepass", NewPassword: "samepass",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestResetPassword(t *testing.T) {
	t.Run("super admin resets anyone", func(t *testing.T) {
		repo := new(mockUserRepo)
		perms := new(mockPermissionClient)
		h := newPasswordHandler(repo, perms)

		perms.On("GetUserRole", mock.Anything, int64(1)).Return(roles.SuperAdmin, nil)
		perms.On("GetUserRole", mock.Anything, int64(9)).Return(roles.Admin, nil)
		repo.On("GetByID", mock.Anything, int64(9)).Return(&domain.User{UserID: 9}, nil)
		repo.On("UpdatePassword", mock.Anything, int64(9), "hashed:"+DefaultResetPassword).Return(nil)

		err := h.Reset(context.Background(), ResetCommand{OperatorID: 1, TargetUserID: 9})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("admin may not reset another admin", func(t *testing.T) {
		repo := new(mockUserRepo)
		perms := new(mockPermissionClient)
		h := newPasswordHandler(repo, perms)

		perms.On("GetUserRole", mock.Anything, int64(5)).Return(roles.Admin, nil)
		perms.On("GetUserRole", mock.Anything, int64(9)).Return(roles.Admin, nil)
		repo.On("GetByID", mock.Anything, int64(9)).Return(&domain.User{UserID: 9}, nil)

		err := h.Reset(context.Background(), ResetCommand{OperatorID: 5, TargetUserID: 9})
		assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
	})

	t.Run("regular user denied", func(t *testing.T) {
		perms := new(mockPermissionClient)
		h := newPasswordHandler(new(mockUserRepo), perms)

		perms.On("GetUserRole", mock.Anything, int64(3)).Return(roles.User, nil)

		err := h.Reset(context.Background(), ResetCommand{OperatorID: 3, TargetUserID: 9})
		assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
	})

	t.Run("self reset rejected", func(t *testing.T) {
		h := newPasswordHandler(new(mockUserRepo), new(mockPermissionClient))
		err := h.Reset(context.Background(), ResetCommand{OperatorID: 9, TargetUserID: 9})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("missing target", func(t *testing.T) {
		repo := new(mockUserRepo)
		perms := new(mockPermissionClient)
		h := newPasswordHandler(repo, perms)

		perms.On("GetUserRole", mock.Anything, int64(1)).Return(roles.SuperAdmin, nil)
		repo.On("GetByID", mock.Anything, int64(77)).Return(nil, domain.ErrNotFound)

		err := h.Reset(context.Background(), ResetCommand{OperatorID: 1, TargetUserID: 77})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}
