package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// User is an account that can sign in. Platform admins have no firm.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID       *uuid.UUID     `gorm:"type:uuid;index" json:"firm_id,omitempty"`
	Email        string         `gorm:"size:320;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	FullName     string         `gorm:"size:200;not null" json:"full_name"`
	Role         constants.Role `gorm:"size:32;not null" json:"role"`
	Active       bool           `gorm:"not null;default:true" json:"active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewUser creates a new active user instance.
func NewUser(firmID *uuid.UUID, email, fullName, passwordHash string, role constants.Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		FirmID:       firmID,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// BelongsTo reports whether the user is a member of firmID.
func (u *User) BelongsTo(firmID uuid.UUID) bool {
	return u.FirmID != nil && *u.FirmID == firmID
}

// MarkLogin records a successful sign-in.
func (u *User) MarkLogin(at time.Time) {
	at = at.UTC()
	u.LastLoginAt = &at
}

//Personal.AI order the ending
