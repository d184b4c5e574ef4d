package dto

import (
	"github.com/turtacn/advisorhub/internal/domain/models"
)

// UploadDocumentRequest describes an incoming file; the body is streamed separately.
type UploadDocumentRequest struct {
	EngagementID string `validate:"required,uuid"`
	FileName     string `validate:"required,max=255"`
	SizeBytes    int64
}

// UploadDocumentResponse reports whether an identical document already existed.
type UploadDocumentResponse struct {
	Document  *models.Document `json:"document"`
	Duplicate bool             `json:"duplicate"`
}

// ExtractWorkbookRequest 提取战略工作簿请求 DTO
type ExtractWorkbookRequest struct {
	EngagementID string   `json:"engagement_id" validate:"required,uuid"`
	DocumentIDs  []string `json:"document_ids" validate:"required,min=1,max=10,dive,uuid"`
}

// UpdateWorkbookRequest is an advisor edit; nil fields are left unchanged and lists replace whole.
type UpdateWorkbookRequest struct {
	Vision      *string              `json:"vision" validate:"omitempty,max=5000"`
	Mission     *string              `json:"mission" validate:"omitempty,max=5000"`
	SWOT        *models.SWOT         `json:"swot"`
	Objectives  *[]models.Objective  `json:"objectives"`
	Initiatives *[]models.Initiative `json:"initiatives"`
	Owners      *[]models.Owner      `json:"owners"`
}

// WorkbookResponse is a workbook with its computed capacity analysis.
type WorkbookResponse struct {
	Workbook *models.StrategyWorkbook `json:"workbook"`
	Loads    []models.OwnerLoad       `json:"capacity"`
	Warnings []models.CapacityWarning `json:"capacity_warnings"`
}

// ListAuditEventsRequest 审计事件列表请求 DTO
type ListAuditEventsRequest struct {
	PageRequest
	Type string `form:"type" validate:"omitempty,max=64"`
}

//Personal.AI order the ending
