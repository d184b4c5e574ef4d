package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// WorkbookHandler serves Strategy Workbook extraction, editing and export.
type WorkbookHandler struct {
	workbooks service.WorkbookAppService
}

func NewWorkbookHandler(workbooks service.WorkbookAppService) *WorkbookHandler {
	return &WorkbookHandler{workbooks: workbooks}
}

// Extract runs the model over the selected documents; it blocks until the workbook is stored.
func (h *WorkbookHandler) Extract(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ExtractWorkbookRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.workbooks.Extract(c.Request.Context(), p, &req)
	respond(c, http.StatusCreated, resp, err)
}

func (h *WorkbookHandler) Get(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	resp, err := h.workbooks.Get(c.Request.Context(), p, c.Param("workbook_id"))
	respond(c, http.StatusOK, resp, err)
}

func (h *WorkbookHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	list, err := h.workbooks.List(c.Request.Context(), p, c.Param("engagement_id"))
	respond(c, http.StatusOK, list, err)
}

func (h *WorkbookHandler) Update(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.UpdateWorkbookRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.workbooks.Update(c.Request.Context(), p, c.Param("workbook_id"), &req)
	respond(c, http.StatusOK, resp, err)
}

func (h *WorkbookHandler) Export(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	file, err := h.workbooks.Export(c.Request.Context(), p, c.Param("workbook_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	sendFile(c, file)
}

//Personal.AI order the ending
