package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/digitlabs/pm-sys/internal/oplog"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/user/domain"
)

// TokenIssuer signs a bearer token for an authenticated user.
type TokenIssuer interface {
	Generate(userID int64, username string) (string, error)
}

// LoginCommand carries a login request.
type LoginCommand struct {
	Username string
	Password string
	Meta     RequestMeta
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// LoginHandler authenticates users and issues tokens.
type LoginHandler struct {
	users  domain.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	audit  AuditPublisher
}

// NewLoginHandler creates the handler.
func NewLoginHandler(users domain.Repository, hasher PasswordHasher, tokens TokenIssuer, audit AuditPublisher) *LoginHandler {
	return &LoginHandler{users: users, hasher: hasher, tokens: tokens, audit: audit}
}

// Handle verifies the credentials and returns a signed token. Unknown
// usernames and wrong passwords yield the same error.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	user, err := h.users.GetByUsername(ctx, cmd.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.Authentication("invalid username or password")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	if err := h.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return nil, apperr.Authentication("invalid username or password")
	}

	token, err := h.tokens.Generate(user.UserID, user.Username)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}

	publishAudit(h.audit, user.UserID, oplog.ActionLogin,
		fmt.Sprintf("user %s logged in", user.Username), cmd.Meta)

	return &LoginResult{Token: token, UserID: user.UserID, Username: user.Username}, nil
}
