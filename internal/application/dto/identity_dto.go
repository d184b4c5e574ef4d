package dto

import (
	"time"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// RegisterRequest 注册请求 DTO：创建事务所及其第一个管理员
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=128"`
	FullName string `json:"full_name" validate:"required,min=2,max=200"`
	FirmName string `json:"firm_name" validate:"required,min=2,max=200"`
}

// LoginRequest 登录请求 DTO
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse 访问令牌响应 DTO
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// RegisterResponse carries the created firm, its subscription and a token for the new admin.
type RegisterResponse struct {
	Firm         *models.Firm         `json:"firm"`
	Subscription *models.Subscription `json:"subscription"`
	Token        *TokenResponse       `json:"token"`
}

// InviteUserRequest 邀请用户请求 DTO
type InviteUserRequest struct {
	Email    string         `json:"email" validate:"required,email,max=320"`
	FullName string         `json:"full_name" validate:"required,min=2,max=200"`
	Role     constants.Role `json:"role" validate:"required,oneof=firm_admin advisor client_viewer"`
}

// InviteUserResponse returns the temporary password exactly once.
type InviteUserResponse struct {
	User              *models.User `json:"user"`
	TemporaryPassword string       `json:"temporary_password"`
}

// ChangePasswordRequest 修改密码请求 DTO
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

//Personal.AI order the ending
