package dto

import (
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// FirmResponse is a firm with its subscription.
type FirmResponse struct {
	Firm         *models.Firm         `json:"firm"`
	Subscription *models.Subscription `json:"subscription"`
}

// UpdateFirmRequest 更新事务所请求 DTO
type UpdateFirmRequest struct {
	Name string `json:"name" validate:"required,min=2,max=200"`
}

// ChangePlanRequest 变更订阅计划请求 DTO
type ChangePlanRequest struct {
	Plan constants.SubscriptionPlan `json:"plan" validate:"required,oneof=starter professional enterprise"`
}

// SetFirmStatusRequest 设置事务所状态请求 DTO
type SetFirmStatusRequest struct {
	Status constants.FirmStatus `json:"status" validate:"required,oneof=active suspended"`
}

// CreateFirmRequest provisions a firm with a chosen plan and its first admin.
type CreateFirmRequest struct {
	Name          string                     `json:"name" validate:"required,min=2,max=200"`
	Plan          constants.SubscriptionPlan `json:"plan" validate:"required,oneof=starter professional enterprise"`
	AdminEmail    string                     `json:"admin_email" validate:"required,email,max=320"`
	AdminName     string                     `json:"admin_name" validate:"required,min=2,max=200"`
	AdminPassword string                     `json:"admin_password" validate:"required,max=128"`
}

// UsageResponse 配额使用情况响应 DTO
type UsageResponse struct {
	Plan   constants.SubscriptionPlan   `json:"plan"`
	Status constants.SubscriptionStatus `json:"status"`
	Usage  models.Usage                 `json:"usage"`
	Limits models.PlanLimits            `json:"limits"`
}

//Personal.AI order the ending
