package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// FirmHandler serves the caller's firm, its subscription and the platform admin views.
type FirmHandler struct {
	firms service.FirmAppService
}

func NewFirmHandler(firms service.FirmAppService) *FirmHandler {
	return &FirmHandler{firms: firms}
}

func (h *FirmHandler) GetFirm(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	resp, err := h.firms.GetFirm(c.Request.Context(), p)
	respond(c, http.StatusOK, resp, err)
}

func (h *FirmHandler) UpdateFirm(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.UpdateFirmRequest
	if !bindJSON(c, &req) {
		return
	}
	firm, err := h.firms.UpdateFirm(c.Request.Context(), p, &req)
	respond(c, http.StatusOK, firm, err)
}

// ChangePlan switches the subscription plan; downgrades below current usage are refused.
func (h *FirmHandler) ChangePlan(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ChangePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.firms.ChangePlan(c.Request.Context(), p, &req)
	respond(c, http.StatusOK, sub, err)
}

func (h *FirmHandler) GetUsage(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	resp, err := h.firms.GetUsage(c.Request.Context(), p)
	respond(c, http.StatusOK, resp, err)
}

// ListFirms is the platform admin listing of every firm.
func (h *FirmHandler) ListFirms(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var page dto.PageRequest
	if !bindQuery(c, &page) {
		return
	}
	resp, err := h.firms.ListFirms(c.Request.Context(), p, page)
	respond(c, http.StatusOK, resp, err)
}

// SetFirmStatus suspends or reactivates a firm.
func (h *FirmHandler) SetFirmStatus(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.SetFirmStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	firm, err := h.firms.SetFirmStatus(c.Request.Context(), p, c.Param("firm_id"), &req)
	respond(c, http.StatusOK, firm, err)
}

//Personal.AI order the ending
