package http_api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ghostliai/cryptopay/internal/auth"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerWebhook  = "x-webhook-secret"

	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// identityMiddleware reads the caller identity asserted by the upstream
// gateway. Requests without a numeric user ID are rejected.
func (s *HTTPServer) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerUserID)
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing or invalid user identity",
			})
			return
		}
		role := auth.Role(c.GetHeader(headerUserRole))
		if role == "" {
			role = auth.RoleUser
		}
		c.Set(ctxUserID, uint(userID))
		c.Set(ctxUserRole, role)
		c.Next()
	}
}

// requirePermission gates a route on the caller's permission set.
func (s *HTTPServer) requirePermission(perm auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.MustGet(ctxUserRole).(auth.Role)
		if !auth.Can(role, perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// webhookAuthMiddleware authenticates payment monitor callbacks with a
// shared secret header.
func (s *HTTPServer) webhookAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(headerWebhook)
		if s.webhookSecret == "" ||
			subtle.ConstantTimeCompare([]byte(secret), []byte(s.webhookSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid webhook secret",
			})
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) uint {
	id, _ := c.MustGet(ctxUserID).(uint)
	return id
}
