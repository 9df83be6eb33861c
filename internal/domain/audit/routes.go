package audit

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the audit surfaces. The caller wraps the group with
// auth + admin role middleware; nothing here is reachable by ordinary staff.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	a := r.Group("/audit")
	{
		a.GET("", h.Query)
		a.GET("/live", h.Live)
	}
}
