package httpx

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/token"
)

const (
	ctxKeyUserID   = "auth_user_id"
	ctxKeyUsername = "auth_username"
)

// Auth verifies the Authorization bearer token and injects the caller
// identity into the gin context.
func Auth(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			Error(c, apperr.Authentication("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			Error(c, apperr.Authentication("invalid authorization header"))
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			Error(c, apperr.Authentication("invalid or expired token"))
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			Error(c, apperr.Authentication("invalid or expired token"))
			return
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyUsername, claims.Username)
		c.Next()
	}
}

// CallerID returns the authenticated user ID set by Auth.
func CallerID(c *gin.Context) int64 {
	return c.GetInt64(ctxKeyUserID)
}

// CallerUsername returns the authenticated username set by Auth.
func CallerUsername(c *gin.Context) string {
	return c.GetString(ctxKeyUsername)
}
