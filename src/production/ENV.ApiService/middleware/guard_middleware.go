package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	logger "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Logger"
)

// PushAuthMiddleware gates the ingestion path with the shared push
// secret carried as a bearer token. The comparison is constant-time and
// the expected value never appears in a response or log line. Rejected
// requests leave an audit entry and never reach the store.
func PushAuthMiddleware(secret string, log *logger.Logger) gin.HandlerFunc {
	audit := log.WithComponent("guard")

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, audit, "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			reject(c, audit, "Invalid authorization format. Expected 'Bearer <token>'")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			reject(c, audit, "Empty token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			reject(c, audit, "Invalid push token")
			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, audit *logger.Logger, msg string) {
	audit.WithField("remote_addr", c.ClientIP()).
		WithField("path", c.Request.URL.Path).
		Warn("rejected unauthorized push: " + msg)
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}
