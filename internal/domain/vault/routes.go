package vault

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the vault API under the authenticated group. Every
// handler re-authorizes through the service; the group middleware only
// establishes the principal context.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	v := r.Group("/vault")
	{
		v.POST("/workspaces", h.EnsureWorkspace)

		v.POST("/folders", h.CreateFolder)
		v.POST("/folders/:id/archive", h.ArchiveFolder)
		v.POST("/folders/:id/assignee", h.ReassignFolder)

		v.POST("/folders/:id/files", h.UploadFile)
		v.GET("/folders/:id/files", h.ListFiles)
		v.GET("/folders/:id/files/:fileId", h.DownloadFile)
		v.DELETE("/folders/:id/files/:fileId", h.DeleteFile)

		v.POST("/grants", h.GrantAccess)
		v.DELETE("/grants/:id", h.RevokeGrant)
	}
}
