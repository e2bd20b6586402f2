// internal/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/pkg/auth"
)

// Authenticator resolves an access token to the acting user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// RequireAuth rejects requests without a valid bearer access token and
// stores the acting user on the request context.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthenticated(c, "missing authorization header")
			return
		}

		token, err := auth.ExtractTokenFromHeader(header)
		if err != nil {
			abortUnauthenticated(c, err.Error())
			return
		}

		userID, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperror.PayloadOf(err)})
			return
		}

		c.Set(string(ContextKeyUserID), userID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ContextKeyUserID, userID))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	err := apperror.New(apperror.KindUnauthenticated, "RequireAuth", "%s", msg)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperror.PayloadOf(err)})
}

// GetUserIDFromContext extracts the acting user from a request context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return userID, ok
}

// Actor returns the acting user of an authenticated request.
func Actor(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(string(ContextKeyUserID)); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
