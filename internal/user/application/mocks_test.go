package application

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

var errMismatch = errors.New("password mismatch")

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, params domain.ListParams) ([]*domain.User, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}

type mockPermissionClient struct {
	mock.Mock
}

func (m *mockPermissionClient) BindDefaultRole(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPermissionClient) BindSuperAdminRole(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPermissionClient) GetUserRole(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockPermissionClient) GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error) {
	args := m.Called(ctx, roleCodes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// noopAudit swallows operation-log messages; audit publishing is
// best-effort and asserted separately.
type noopAudit struct{}

func (noopAudit) Publish(ctx context.Context, msg oplog.Message) error { return nil }

// captureAudit hands published messages to the test. Publishing is
// asynchronous, so assertions receive from the channel with a timeout.
type captureAudit struct {
	messages chan oplog.Message
}

func newCaptureAudit() *captureAudit {
	return &captureAudit{messages: make(chan oplog.Message, 8)}
}

func (c *captureAudit) Publish(ctx context.Context, msg oplog.Message) error {
	c.messages <- msg
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (fakeHasher) Compare(hash, plain string) error {
	if hash != "hashed:"+plain {
		return errMismatch
	}
	return nil
}

type seqIDs struct {
	next atomic.Int64
}

func (s *seqIDs) NextID() int64 {
	return s.next.Add(1)
}

type fakeTokens struct{}

func (fakeTokens) Generate(userID int64, username string) (string, error) {
	return "token-for-" + username, nil
}
