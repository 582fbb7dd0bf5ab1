// Package auth guards the monitor's HTTP surface with a shared API key.
// Dashboards and operational tooling present the key on every request;
// the system endpoints (health, metrics) stay open.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "X-API-Key"

// APIKeyMiddleware enforces the configured API key on a route group.
// An empty key disables the check, which is how local development runs.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	if apiKey == "" {
		return func(c *gin.Context) { c.Next() }
	}

	want := []byte(apiKey)
	return func(c *gin.Context) {
		provided := c.GetHeader(HeaderName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
