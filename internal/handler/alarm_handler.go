package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"alarmclock/backend/internal/middleware"
	"alarmclock/backend/internal/service"
)

type AlarmHandler struct {
	alarmService *service.AlarmService
}

type dismissRequest struct {
	NFCTag string `json:"nfcTag"`
}

type nfcScanRequest struct {
	TagID string `json:"tagId"`
}

func NewAlarmHandler(alarmService *service.AlarmService) *AlarmHandler {
	return &AlarmHandler{alarmService: alarmService}
}

func (h *AlarmHandler) List(c *gin.Context) {
	alarms, apiErr := h.alarmService.List(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarms": alarms})
}

func (h *AlarmHandler) Get(c *gin.Context) {
	alarm, apiErr := h.alarmService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarm": alarm})
}

func (h *AlarmHandler) Create(c *gin.Context) {
	var req service.AlarmInput
	if !bindJSON(c, &req) {
		return
	}

	result, apiErr := h.alarmService.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *AlarmHandler) Update(c *gin.Context) {
	var req service.AlarmInput
	if !bindJSON(c, &req) {
		return
	}
	if req.BaseVersion <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_base_version", "message": "baseVersion is required"},
		})
		return
	}

	result, apiErr := h.alarmService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AlarmHandler) Delete(c *gin.Context) {
	if apiErr := h.alarmService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AlarmHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

func (h *AlarmHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *AlarmHandler) setEnabled(c *gin.Context, enabled bool) {
	result, apiErr := h.alarmService.SetEnabled(c.Request.Context(), middleware.UserID(c), c.Param("id"), enabled)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AlarmHandler) Snooze(c *gin.Context) {
	result, apiErr := h.alarmService.Snooze(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Dismiss accepts an empty body for alarms without an NFC requirement.
func (h *AlarmHandler) Dismiss(c *gin.Context) {
	var req dismissRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, apiErr := h.alarmService.Dismiss(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.NFCTag)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AlarmHandler) SkipNext(c *gin.Context) {
	result, apiErr := h.alarmService.SkipNext(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AlarmHandler) GetHistory(c *gin.Context) {
	limit := 50
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "invalid_limit", "message": "limit must be a number"},
			})
			return
		}
		limit = parsed
	}

	occurrences, apiErr := h.alarmService.History(c.Request.Context(), middleware.UserID(c), c.Param("id"), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}

func (h *AlarmHandler) Calendar(c *gin.Context) {
	body, apiErr := h.alarmService.Calendar(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if body == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="alarms.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

func (h *AlarmHandler) Status(c *gin.Context) {
	status, apiErr := h.alarmService.Status(c.Request.Context(), middleware.CurrentUser(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AlarmHandler) ScanNFC(c *gin.Context) {
	var req nfcScanRequest
	if !bindJSON(c, &req) {
		return
	}

	dismissed, apiErr := h.alarmService.ScanNFC(c.Request.Context(), middleware.UserID(c), req.TagID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": dismissed})
}
