package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// Firm represents a tenant organisation in the multi-tenant advisory platform.
// Every client, engagement, document and report belongs to exactly one firm.
// Firm 代表多租户咨询平台中的一个租户组织。
type Firm struct {
	// ID is the unique identifier for the firm.
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Name is the display name of the firm.
	Name string `gorm:"size:200;not null" json:"name"`

	// Slug is the URL-safe unique handle derived from the name.
	Slug string `gorm:"size:120;uniqueIndex;not null" json:"slug"`

	// Status indicates whether the firm may use the platform.
	Status constants.FirmStatus `gorm:"size:32;not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFirm creates a new active firm.
func NewFirm(name, slug string) *Firm {
	now := time.Now().UTC()
	return &Firm{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Status:    constants.FirmStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive checks if the firm is allowed to sign in and consume quota.
func (f *Firm) IsActive() bool {
	return f.Status == constants.FirmStatusActive
}

//Personal.AI order the ending
