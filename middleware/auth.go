package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pawankshetri11/payoutclickmain-sub001/auth"
	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "userID"
	UserEmailKey = "userEmail"
	UserRoleKey  = "userRole"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		// EventSource cannot set headers, so the stream passes the token in the query.
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && strings.ToLower(parts[0]) == "bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware requires a valid access token. With cfg.SkipAuth the caller
// is taken from the X-User-ID and X-User-Role headers instead (development only).
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SkipAuth {
			id := c.GetHeader("X-User-ID")
			if id == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "X-User-ID header required"})
				return
			}
			role := c.GetHeader("X-User-Role")
			if role == "" {
				role = models.RoleUser
			}
			c.Set(UserIDKey, id)
			c.Set(UserRoleKey, role)
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authorization header required"})
			return
		}

		claims, err := auth.ValidateAccessToken(cfg, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired access token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// AdminMiddleware requires the admin role. It runs after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(UserRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		if role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "admin access required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's id.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
