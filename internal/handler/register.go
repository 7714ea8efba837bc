package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/infra"
	"github.com/eoivo/embala-fest-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterHandler struct {
	svc       service.RegisterService
	storeName string
}

func NewRegisterHandler(svc service.RegisterService, storeName string) *RegisterHandler {
	return &RegisterHandler{svc: svc, storeName: storeName}
}

// Open godoc
// @Summary Opens a register for the authenticated operator
// @Tags register
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenRegisterRequest true "Opening balance"
// @Success 201 {object} dto.RegisterResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 409 {object} apierror.APIError
// @Router /register/open [post]
func (h *RegisterHandler) Open(c *gin.Context) {
	var req dto.OpenRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Closes the operator's register with manager authorization
// @Tags register
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseRegisterRequest true "Declared balance and manager credentials"
// @Success 200 {object} dto.RegisterResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 401 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /register/close [post]
func (h *RegisterHandler) Close(c *gin.Context) {
	var req dto.CloseRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Withdrawal godoc
// @Summary Records a cash withdrawal on the open register
// @Tags register
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.WithdrawalRequest true "Amount and reason"
// @Success 200 {object} dto.RegisterResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 404 {object} apierror.APIError
// @Router /register/withdrawal [post]
func (h *RegisterHandler) Withdrawal(c *gin.Context) {
	var req dto.WithdrawalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddWithdrawal(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Current godoc
// @Summary Returns the operator's open register with its running summary
// @Tags register
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CurrentRegisterResponse
// @Failure 404 {object} apierror.APIError
// @Router /register/current [get]
func (h *RegisterHandler) Current(c *gin.Context) {
	resp, err := h.svc.Current(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Lists the operator's closed registers, newest first
// @Tags register
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.RegisterHistoryResponse
// @Router /register/history [get]
func (h *RegisterHandler) History(c *gin.Context) {
	var filter dto.RegisterHistoryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), callerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Dashboard godoc
// @Summary Current register summary next to the last closed one
// @Tags register
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Failure 404 {object} apierror.APIError
// @Router /register/dashboard [get]
func (h *RegisterHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Summarize(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary Closing report PDF for a register
// @Tags register
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Router /register/{id}/report [get]
func (h *RegisterHandler) Report(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reg, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := infra.RenderRegisterReport(&buf, h.storeName, reg); err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="register_%s.pdf"`, reg.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
