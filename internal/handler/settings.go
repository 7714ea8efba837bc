package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/gin-gonic/gin"
)

// AutoCloseScheduler is the part of *worker.AutoCloseScheduler the settings
// endpoints use.
type AutoCloseScheduler interface {
	Info() worker.ScheduleInfo
	SetTime(ctx context.Context, hours, minutes int) (worker.ScheduleInfo, error)
}

type SettingsHandler struct{ scheduler AutoCloseScheduler }

func NewSettingsHandler(scheduler AutoCloseScheduler) *SettingsHandler {
	return &SettingsHandler{scheduler: scheduler}
}

// GetAutoClose godoc
// @Summary Current register auto-close schedule
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AutoCloseInfoResponse
// @Router /settings/auto-close [get]
func (h *SettingsHandler) GetAutoClose(c *gin.Context) {
	info := h.scheduler.Info()
	resp := dto.AutoCloseInfoResponse{
		Schedule:    info.Schedule,
		Description: info.Description,
		IsActive:    info.IsActive,
	}
	if info.NextRun != nil {
		next := info.NextRun.Format(time.RFC3339)
		resp.NextRun = &next
	}
	c.JSON(http.StatusOK, resp)
}

// SetAutoClose godoc
// @Summary Changes the daily auto-close time (admin only)
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AutoCloseSetRequest true "Trigger time"
// @Success 200 {object} dto.AutoCloseSetResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 403 {object} apierror.APIError
// @Router /settings/auto-close [put]
func (h *SettingsHandler) SetAutoClose(c *gin.Context) {
	var req dto.AutoCloseSetRequest
	if !bindAndValidate(c, &req) {
		return
	}
	info, err := h.scheduler.SetTime(c.Request.Context(), *req.Hours, *req.Minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AutoCloseSetResponse{Schedule: info.Schedule, Description: info.Description})
}
