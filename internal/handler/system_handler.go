package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alarmclock/backend/internal/service"
)

type SystemHandler struct {
	systemService *service.SystemService
}

func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{systemService: systemService}
}

// Trigger receives boot, clock, timezone, locale, upgrade and permission
// signals from the host adapter.
func (h *SystemHandler) Trigger(c *gin.Context) {
	var req service.TriggerInput
	if !bindJSON(c, &req) {
		return
	}

	report, apiErr := h.systemService.HandleTrigger(c.Request.Context(), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
