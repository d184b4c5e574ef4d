// Package dto provides data transfer objects for the application layer.
package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// PaginationResponse 分页响应元数据
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageResult is one page of a listing.
type PageResult struct {
	Items      interface{}        `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// PageRequest is the common pagination query.
type PageRequest struct {
	Page     int `form:"page" json:"page" validate:"omitempty,gte=1"`
	PageSize int `form:"page_size" json:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ToPage converts the request into a normalised repository page.
func (r PageRequest) ToPage() repository.Page {
	return repository.Page{Page: r.Page, PageSize: r.PageSize}.Normalize()
}

// NewPageResult wraps items with pagination metadata.
func NewPageResult(items interface{}, page repository.Page, total int64) *PageResult {
	page = page.Normalize()
	totalPages := int(total) / page.PageSize
	if int(total)%page.PageSize > 0 {
		totalPages++
	}
	return &PageResult{
		Items: items,
		Pagination: PaginationResponse{
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// FileResponse is a generated file returned for download.
type FileResponse struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应
// Errors that are not AppErrors are reported as server_error without their internal message.
func ErrorResponse(err error, traceID string) *APIResponse {
	var errorDTO *ErrorDTO

	if appErr, ok := errors.AsAppError(err); ok {
		errorDTO = &ErrorDTO{
			Code:        string(appErr.Code()),
			Message:     errors.MessageOf(appErr),
			Description: appErr.Description(),
			Details:     appErr.Metadata(),
		}
	} else {
		errorDTO = &ErrorDTO{
			Code:        string(errors.CodeServerError),
			Message:     "Internal server error",
			Description: "An unexpected error occurred",
		}
	}

	return &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// SendSuccess writes data in the success envelope.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, traceIDOf(c)))
}

// SendError writes err in the error envelope and aborts the chain.
// 未知错误统一返回 500。
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
	}
	c.AbortWithStatusJSON(status, ErrorResponse(err, traceIDOf(c)))
}

// traceIDOf prefers the OpenTelemetry trace and falls back to the request id.
func traceIDOf(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return c.GetString(string(constants.ContextKeyRequestID))
}

//Personal.AI order the ending
