package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// AuditHandler lists the firm's audit trail.
type AuditHandler struct {
	audit service.AuditAppService
}

func NewAuditHandler(audit service.AuditAppService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ListAuditEventsRequest
	if !bindQuery(c, &req) {
		return
	}
	resp, err := h.audit.List(c.Request.Context(), p, &req)
	respond(c, http.StatusOK, resp, err)
}

//Personal.AI order the ending
