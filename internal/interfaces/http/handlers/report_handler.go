package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// ReportHandler drives the BBA report workflow.
// ReportHandler 驱动 BBA 报告流程。
type ReportHandler struct {
	reports service.BBAAppService
}

func NewReportHandler(reports service.BBAAppService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Catalog returns the diagnostic questionnaire as a bare JSON document.
// It skips the envelope so the body, and with it the ETag, only changes with the catalog.
func (h *ReportHandler) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.reports.Catalog(c.Request.Context()))
}

func (h *ReportHandler) Start(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.StartReportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.Start(c.Request.Context(), p, &req)
	respond(c, http.StatusCreated, report, err)
}

func (h *ReportHandler) SubmitResponses(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.SubmitResponsesRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.SubmitResponses(c.Request.Context(), p, c.Param("report_id"), &req)
	respond(c, http.StatusOK, report, err)
}

// RunStep executes the report's next step synchronously.
func (h *ReportHandler) RunStep(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.RunStepRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.RunStep(c.Request.Context(), p, c.Param("report_id"), &req)
	respond(c, http.StatusOK, report, err)
}

func (h *ReportHandler) Cancel(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	report, err := h.reports.Cancel(c.Request.Context(), p, c.Param("report_id"))
	respond(c, http.StatusOK, report, err)
}

func (h *ReportHandler) Get(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), p, c.Param("report_id"))
	respond(c, http.StatusOK, report, err)
}

func (h *ReportHandler) Status(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	status, err := h.reports.GetStatus(c.Request.Context(), p, c.Param("report_id"))
	respond(c, http.StatusOK, status, err)
}

// List returns the reports of one engagement.
func (h *ReportHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	reports, err := h.reports.List(c.Request.Context(), p, c.Param("engagement_id"))
	respond(c, http.StatusOK, reports, err)
}

func (h *ReportHandler) Export(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	file, err := h.reports.ExportScorecard(c.Request.Context(), p, c.Param("report_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	sendFile(c, file)
}

//Personal.AI order the ending
