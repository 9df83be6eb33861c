package vault

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medvault/internal/middleware"
	"medvault/internal/pkg/response"
)

// Handler is the HTTP surface of the vault. It only parses requests and maps
// the error taxonomy onto status codes; all decisions live in the Service.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func principalFrom(c *gin.Context) Principal {
	return Principal{
		ID:     c.GetString(middleware.CtxPrincipalID),
		Role:   Role(c.GetString(middleware.CtxRole)),
		Module: c.GetString(middleware.CtxModule),
		Origin: c.ClientIP(),
	}
}

type ensureWorkspaceRequest struct {
	Module     string `json:"module" binding:"required"`
	QuotaBytes int64  `json:"quota_bytes"`
}

func (h *Handler) EnsureWorkspace(c *gin.Context) {
	var req ensureWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "module is required")
		return
	}

	ws, err := h.service.EnsureWorkspace(c.Request.Context(), principalFrom(c), req.Module, req.QuotaBytes)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ws)
}

type createFolderRequest struct {
	Module    string `json:"module" binding:"required"`
	SubjectID string `json:"subject_id"`
}

func (h *Handler) CreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "module is required")
		return
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), principalFrom(c), req.Module, req.SubjectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, folder)
}

func (h *Handler) UploadFile(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "no file provided")
		return
	}
	category := c.PostForm("category")
	accessLevel := c.PostForm("access_level")

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "cannot read file")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "cannot read file")
		return
	}

	res, err := h.service.UploadFile(c.Request.Context(), principalFrom(c), folderID, content, fileHeader.Filename, category, accessLevel)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.QuotaWarning {
		response.SuccessWithWarning(c, http.StatusCreated, res.Record, "workspace quota exceeded")
		return
	}
	response.Success(c, http.StatusCreated, res.Record)
}

func (h *Handler) DownloadFile(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	fileID, ok := h.pathID(c, "fileId")
	if !ok {
		return
	}

	record, plaintext, err := h.service.DownloadFile(c.Request.Context(), principalFrom(c), folderID, fileID)
	if err != nil {
		h.fail(c, err)
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": record.Name})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, record.ContentType, plaintext)
}

func (h *Handler) ListFiles(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	summaries, err := h.service.ListFiles(c.Request.Context(), principalFrom(c), folderID, c.Query("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"files": summaries, "count": len(summaries)})
}

func (h *Handler) DeleteFile(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	fileID, ok := h.pathID(c, "fileId")
	if !ok {
		return
	}
	purge := c.Query("purge") == "true"

	if err := h.service.DeleteFile(c.Request.Context(), principalFrom(c), folderID, fileID, purge); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true, "purged": purge})
}

func (h *Handler) ArchiveFolder(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.ArchiveFolder(c.Request.Context(), principalFrom(c), folderID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"archived": true})
}

type reassignRequest struct {
	AssignedID string `json:"assigned_id" binding:"required"`
}

func (h *Handler) ReassignFolder(c *gin.Context) {
	folderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "assigned_id is required")
		return
	}
	if err := h.service.ReassignFolder(c.Request.Context(), principalFrom(c), folderID, req.AssignedID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned_id": req.AssignedID})
}

type grantRequest struct {
	FolderID   string   `json:"folder_id" binding:"required"`
	GranteeID  string   `json:"grantee_id" binding:"required"`
	Operations []string `json:"operations" binding:"required"`
	ExpiresAt  *string  `json:"expires_at"`
}

func (h *Handler) GrantAccess(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "folder_id, grantee_id and operations are required")
		return
	}
	folderID, err := uuid.Parse(req.FolderID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid folder id")
		return
	}
	ops := make([]Operation, len(req.Operations))
	for i, op := range req.Operations {
		ops[i] = Operation(op)
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "expires_at must be RFC3339")
			return
		}
		expiresAt = &t
	}

	grant, err := h.service.GrantAccess(c.Request.Context(), principalFrom(c), folderID, req.GranteeID, ops, expiresAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, grant)
}

func (h *Handler) RevokeGrant(c *gin.Context) {
	grantID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.RevokeGrant(c.Request.Context(), principalFrom(c), grantID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// fail maps the error taxonomy onto HTTP status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrGrantExceedsGrantor):
		response.Error(c, http.StatusForbidden, "UNAUTHORIZED", "Access denied")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, ErrPayloadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File exceeds the configured maximum size")
	case errors.Is(err, ErrInvalidCategory):
		response.Error(c, http.StatusBadRequest, "INVALID_CATEGORY", "Unknown file category")
	case errors.Is(err, ErrIntegrity):
		response.Error(c, http.StatusUnprocessableEntity, "INTEGRITY_FAILURE", "Stored content failed integrity verification")
	case errors.Is(err, ErrStorageUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is temporarily unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
