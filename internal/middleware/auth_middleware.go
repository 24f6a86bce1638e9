package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "alarmclock/backend/internal/errors"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/service"
)

const (
	UserIDContextKey = "userID"
	UserContextKey   = "user"
)

// Auth loads the token's user, preferences included, into the context.

func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			writeError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			writeError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		user, apiErr := authService.Authenticate(c.Request.Context(), token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(UserIDContextKey, user.ID)
		c.Set(UserContextKey, user)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	value, ok := c.Get(UserIDContextKey)
	if !ok {
		return ""
	}
	userID, ok := value.(string)
	if !ok {
		return ""
	}
	return userID
}

// CurrentUser returns the user loaded by Auth, or nil outside it.
func CurrentUser(c *gin.Context) *model.User {
	value, ok := c.Get(UserContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
			"details": apiErr.Details,
		},
	})
}
