package dto

import (
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// StartReportRequest 开始 BBA 报告请求 DTO
type StartReportRequest struct {
	EngagementID string `json:"engagement_id" validate:"required,uuid"`
}

// SubmitResponsesRequest carries questionnaire answers keyed by module then question.
type SubmitResponsesRequest struct {
	Answers models.Answers `json:"answers" validate:"required,min=1"`
}

// RunStepRequest 执行 BBA 步骤请求 DTO
type RunStepRequest struct {
	Step constants.BBAStep `json:"step" validate:"required,oneof=questionnaire scoring findings recommendations roadmap summary"`
}

// ReportStatusResponse is the compact progress view of a report.
type ReportStatusResponse struct {
	ReportID     string                 `json:"report_id"`
	EngagementID string                 `json:"engagement_id"`
	Status       constants.ReportStatus `json:"status"`
	CurrentStep  constants.BBAStep      `json:"current_step"`
	NextStep     constants.BBAStep      `json:"next_step"`
	LastError    string                 `json:"last_error,omitempty"`
}

// NewReportStatus builds the status view of report.
func NewReportStatus(r *models.BBAReport) *ReportStatusResponse {
	next := r.NextStep()
	if r.Status != constants.ReportInProgress {
		next = constants.StepDone
	}
	return &ReportStatusResponse{
		ReportID:     r.ID.String(),
		EngagementID: r.EngagementID.String(),
		Status:       r.Status,
		CurrentStep:  r.CurrentStep,
		NextStep:     next,
		LastError:    r.LastError,
	}
}

//Personal.AI order the ending
