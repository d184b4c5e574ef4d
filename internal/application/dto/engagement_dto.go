package dto

import (
	"time"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// ClientRequest creates or replaces a client.
type ClientRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=200"`
	Industry      string  `json:"industry" validate:"omitempty,max=120"`
	AnnualRevenue float64 `json:"annual_revenue" validate:"gte=0"`
	EmployeeCount int     `json:"employee_count" validate:"gte=0"`
	ContactEmail  string  `json:"contact_email" validate:"omitempty,email,max=320"`
}

// CreateEngagementRequest 创建项目请求 DTO
// Status may be draft (default) or active; active consumes the engagement quota.
type CreateEngagementRequest struct {
	ClientID      string                     `json:"client_id" validate:"required,uuid"`
	AdvisorID     string                     `json:"advisor_id" validate:"omitempty,uuid"`
	Title         string                     `json:"title" validate:"required,min=1,max=200"`
	Type          constants.EngagementType   `json:"type" validate:"required,oneof=bba strategy_workbook general"`
	Status        constants.EngagementStatus `json:"status" validate:"omitempty,oneof=draft active"`
	StartDate     *time.Time                 `json:"start_date"`
	TargetEndDate *time.Time                 `json:"target_end_date"`
	Notes         string                     `json:"notes" validate:"omitempty,max=10000"`
}

// UpdateEngagementRequest 更新项目请求 DTO; nil fields are left unchanged.
type UpdateEngagementRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	AdvisorID     *string    `json:"advisor_id" validate:"omitempty,uuid"`
	StartDate     *time.Time `json:"start_date"`
	TargetEndDate *time.Time `json:"target_end_date"`
	Notes         *string    `json:"notes" validate:"omitempty,max=10000"`
}

// TransitionEngagementRequest moves an engagement through its status machine.
type TransitionEngagementRequest struct {
	Status constants.EngagementStatus `json:"status" validate:"required,oneof=draft active completed archived"`
}

// ListEngagementsRequest filters an engagement listing.
type ListEngagementsRequest struct {
	PageRequest
	Status    constants.EngagementStatus `form:"status" validate:"omitempty,oneof=draft active completed archived"`
	ClientID  string                     `form:"client_id" validate:"omitempty,uuid"`
	AdvisorID string                     `form:"advisor_id" validate:"omitempty,uuid"`
}

//Personal.AI order the ending
