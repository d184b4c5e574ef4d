package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// Claims represents the custom JWT claims carried by AdvisorHub access tokens.
// It embeds the standard jwt.RegisteredClaims (sub, jti, exp, iat, iss) and adds tenancy and role.
// Claims 代表 AdvisorHub 访问令牌中携带的自定义 JWT 声明。
type Claims struct {
	jwt.RegisteredClaims
	// FirmID is the firm the user belongs to; empty for platform admins.
	// FirmID 是用户所属的事务所；平台管理员为空。
	FirmID string `json:"firm_id,omitempty"`
	// Role is the user's authorization role.
	// Role 是用户的授权角色。
	Role constants.Role `json:"role"`
}

// Principal is the authenticated caller extracted from a verified access token.
type Principal struct {
	UserID    uuid.UUID
	FirmID    *uuid.UUID
	Role      constants.Role
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the principal holds one of roles.
func (p *Principal) HasRole(roles ...constants.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsFirmAdmin reports whether the principal administers its firm.
func (p *Principal) IsFirmAdmin() bool {
	return p.Role == constants.RoleFirmAdmin
}

// FirmIDOrNil returns the principal's firm or uuid.Nil for platform admins.
func (p *Principal) FirmIDOrNil() uuid.UUID {
	if p.FirmID == nil {
		return uuid.Nil
	}
	return *p.FirmID
}

//Personal.AI order the ending
