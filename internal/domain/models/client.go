package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a business served by a firm.
type Client struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID        uuid.UUID `gorm:"type:uuid;index;not null" json:"firm_id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	Industry      string    `gorm:"size:120" json:"industry"`
	AnnualRevenue float64   `json:"annual_revenue"`
	EmployeeCount int       `json:"employee_count"`
	ContactEmail  string    `gorm:"size:320" json:"contact_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewClient creates a new client for firmID.
func NewClient(firmID uuid.UUID, name string) *Client {
	now := time.Now().UTC()
	return &Client{
		ID:        uuid.New(),
		FirmID:    firmID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
