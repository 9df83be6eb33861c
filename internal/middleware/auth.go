package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwtsvc "medvault/internal/pkg/jwt"
	"medvault/internal/pkg/response"
)

// Context keys populated by Auth for downstream handlers.
const (
	CtxPrincipalID = "principal_id"
	CtxRole        = "role"
	CtxModule      = "module"
)

// Auth validates the bearer token and places the principal context in the
// request. The vault re-authorizes every operation itself; this middleware
// only establishes who is calling.
func Auth(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or malformed Authorization header")
			c.Abort()
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			c.Abort()
			return
		}

		c.Set(CtxPrincipalID, claims.PrincipalID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxModule, claims.Module)

		c.Next()
	}
}
