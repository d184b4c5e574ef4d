package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// AuditEvent represents a single audit trail entry and domain event.
type AuditEvent struct {
	ID           uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID       *uuid.UUID               `gorm:"type:uuid;index" json:"firm_id,omitempty"`
	ActorID      *uuid.UUID               `gorm:"type:uuid" json:"actor_id,omitempty"` // nil for system actions
	Type         constants.AuditEventType `gorm:"size:64;index;not null" json:"type"`
	ResourceType string                   `gorm:"size:64" json:"resource_type"`
	ResourceID   string                   `gorm:"size:64" json:"resource_id"`
	Metadata     map[string]interface{}   `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	RequestID    string                   `gorm:"size:64" json:"request_id,omitempty"`
	Signature    string                   `gorm:"size:64" json:"signature,omitempty"`
	CreatedAt    time.Time                `gorm:"index" json:"created_at"`
}

// NewAuditEvent creates a new audit event.
func NewAuditEvent(firmID *uuid.UUID, eventType constants.AuditEventType, resourceType, resourceID string) *AuditEvent {
	return &AuditEvent{
		ID:           uuid.New(),
		FirmID:       firmID,
		Type:         eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
}

// WithActor sets the acting user.
func (a *AuditEvent) WithActor(actorID uuid.UUID) *AuditEvent {
	a.ActorID = &actorID
	return a
}

// WithMetadata adds a metadata entry.
func (a *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	if a.Metadata == nil {
		a.Metadata = make(map[string]interface{})
	}
	a.Metadata[key] = value
	return a
}

//Personal.AI order the ending
