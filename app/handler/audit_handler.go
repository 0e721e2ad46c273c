package handler

import (
	"net/http"
	"strconv"

	"chronos/internal/service"

	"github.com/gin-gonic/gin"
)

// AuditHandler exposes the change history
type AuditHandler struct {
	tracker *service.TrackerService
}

// NewAuditHandler creates audit handler
func NewAuditHandler(tracker *service.TrackerService) *AuditHandler {
	return &AuditHandler{tracker: tracker}
}

// ListEvents lists recent change events, newest first
// @Summary Audit trail
// @Tags audit
// @Produce json
// @Param limit query int false "Max events (default 50, max 500)"
// @Success 200 {array} model.ChangeEvent
// @Router /api/v1/audit [get]
func (h *AuditHandler) ListEvents(c *gin.Context) {
	if !h.tracker.AuditEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail is not configured"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	events, err := h.tracker.AuditTrail(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "list audit events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}
