package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"medvault/internal/middleware"
	"medvault/internal/pkg/response"
)

// Handler exposes the read-only audit query API and the live feed.
// Both surfaces are admin-only; routes.go applies the role gate.
type Handler struct {
	repo Repository
	feed *Feed
}

func NewHandler(repo Repository, feed *Feed) *Handler {
	return &Handler{repo: repo, feed: feed}
}

// Query returns audit entries filtered by module, subject, action, risk and
// time window, newest first.
func (h *Handler) Query(c *gin.Context) {
	f := Filter{
		Module:    c.Query("module"),
		SubjectID: c.Query("subject_id"),
		Action:    c.Query("action"),
		Risk:      c.Query("risk"),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_FILTER", "from must be RFC3339")
			return
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_FILTER", "to must be RFC3339")
			return
		}
		f.To = t
	}
	if v := c.Query("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}

	entries, err := h.repo.Query(c.Request.Context(), f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Failed to query audit log")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Live upgrades to a websocket streaming high-risk entries as they land.
func (h *Handler) Live(c *gin.Context) {
	principalID := c.GetString(middleware.CtxPrincipalID)
	if err := h.feed.ServeWS(c.Writer, c.Request, principalID); err != nil {
		// Upgrade already wrote the failure response.
		return
	}
}
