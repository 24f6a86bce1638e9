package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "alarmclock/backend/internal/errors"
)

const TriggerKeyHeader = "X-Trigger-Key"

// TriggerKey guards the host-adapter endpoints with a shared secret.
func TriggerKey(key string) gin.HandlerFunc {
	expected := []byte(key)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader(TriggerKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			writeError(c, apperrors.Unauthorized("invalid trigger key"))
			return
		}
		c.Next()
	}
}
