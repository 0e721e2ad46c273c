package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"chronos/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware simple token authentication middleware.
// An empty apiKey disables authentication.
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		// Get token from Authorization header
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			token = c.GetHeader("X-API-Key")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			logger.WarnCtx(c.Request.Context(), "unauthorized %s %s, invalid API key", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}
