package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

func TestLoginSuccess(t *testing.T) {
	repo := new(mockUserRepo)
	h := NewLoginHandler(repo, fakeHasher{}, fakeTokens{}, noopAudit{})

	repo.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID:       42,
		Username:     "alice",
		PasswordHash: "hashed:s3cretpw",
	}, nil)

	result, err := h.Handle(context.Background(), LoginCommand{Username: "alice", Password: "s3cretpw"})
	require.NoError(t, err)
	assert.Equal(t, "token-for-alice", result.Token)
	assert.Equal(t, int64(42), result.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(mockUserRepo)
	h := NewLoginHandler(repo, fakeHasher{}, fakeTokens{}, noopAudit{})

	repo.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
		UserID:       42,
		Username:     "alice",
		PasswordHash: "hashed:s3cretpw",
	}, nil)

	_, err := h.Handle(context.Background(), LoginCommand{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
}

func TestLoginUnknownUserSameError(t *testing.T) {
	repo := new(mockUserRepo)
	h := NewLoginHandler(repo, fakeHasher{}, fakeTokens{}, noopAudit{})

	repo.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := h.Handle(context.Background(), LoginCommand{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	appErr := apperr.From(err)
	assert.Equal(t, apperr.KindAuthentication, appErr.Kind)
	assert.Equal(t, "invalid username or password", appErr.Message)
}
