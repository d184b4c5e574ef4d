package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// EngagementHandler handles engagement tracking.
// EngagementHandler 处理咨询项目请求。
type EngagementHandler struct {
	engagements service.EngagementAppService
}

func NewEngagementHandler(engagements service.EngagementAppService) *EngagementHandler {
	return &EngagementHandler{engagements: engagements}
}

func (h *EngagementHandler) Create(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.CreateEngagementRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.engagements.Create(c.Request.Context(), p, &req)
	respond(c, http.StatusCreated, e, err)
}

func (h *EngagementHandler) Get(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	e, err := h.engagements.Get(c.Request.Context(), p, c.Param("engagement_id"))
	respond(c, http.StatusOK, e, err)
}

func (h *EngagementHandler) Update(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.UpdateEngagementRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.engagements.Update(c.Request.Context(), p, c.Param("engagement_id"), &req)
	respond(c, http.StatusOK, e, err)
}

// Transition moves the engagement to the requested status.
func (h *EngagementHandler) Transition(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.TransitionEngagementRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.engagements.Transition(c.Request.Context(), p, c.Param("engagement_id"), &req)
	respond(c, http.StatusOK, e, err)
}

func (h *EngagementHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ListEngagementsRequest
	if !bindQuery(c, &req) {
		return
	}
	resp, err := h.engagements.List(c.Request.Context(), p, &req)
	respond(c, http.StatusOK, resp, err)
}

//Personal.AI order the ending
