package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medvault/internal/pkg/response"
)

// RequireRole gates a route group to principals holding one of the given
// roles. Fine-grained folder-level decisions stay in the vault service; this
// only protects administrative surfaces like the audit query API.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}
		if !allowed[role.(string)] {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
