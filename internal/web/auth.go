package web

import (
	"strings"

	"github.com/acme/user-service/internal/apperr"
	"github.com/gin-gonic/gin"
)

// ContextKeyClientID is the gin context key holding the authenticated client ID.
const ContextKeyClientID = "clientID"

// APIKeyMiddleware validates the Authorization bearer token against the
// configured key set. An empty key set disables authentication. Failures are
// raised as the unauthorized kind and translated by ErrorHandler.
func APIKeyMiddleware(apiKeys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(apiKeys) == 0 {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			_ = c.Error(&apperr.UnauthorizedError{Message: "A bearer API key is required."})
			c.Abort()
			return
		}
		clientID, ok := apiKeys[token]
		if !ok {
			_ = c.Error(&apperr.UnauthorizedError{Message: "The provided API key is not valid."})
			c.Abort()
			return
		}
		c.Set(ContextKeyClientID, clientID)
		c.Next()
	}
}
