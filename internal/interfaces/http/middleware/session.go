package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// DefaultSessionHeader is the header carrying the cart session id
const DefaultSessionHeader = "X-Cart-Session"

// SessionIDKey is the gin context key holding the cart session id
const SessionIDKey = "cart_session_id"

// CartSession resolves the cart session from header. Requests without one
// get a fresh id. The id is echoed back so clients can keep it.
// Malformed ids are passed through and rejected by the cart service.
func CartSession(header string) gin.HandlerFunc {
	if header == "" {
		header = DefaultSessionHeader
	}
	return func(c *gin.Context) {
		sessionID := c.GetHeader(header)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		c.Set(SessionIDKey, sessionID)
		c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), sessionID))
		c.Writer.Header().Set(header, sessionID)
		c.Next()
	}
}

// GetSessionID returns the cart session id set by CartSession
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
