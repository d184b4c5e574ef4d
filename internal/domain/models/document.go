package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file attached to an engagement.
// The bytes live in object storage under StorageKey.
type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID       uuid.UUID `gorm:"type:uuid;index;not null" json:"firm_id"`
	EngagementID uuid.UUID `gorm:"type:uuid;index:idx_documents_engagement_sha;not null" json:"engagement_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	ContentType  string    `gorm:"size:128;not null" json:"content_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	SHA256       string    `gorm:"column:sha256;size:64;index:idx_documents_engagement_sha;not null" json:"sha256"`
	StorageKey   string    `gorm:"size:512;not null" json:"-"`
	UploadedBy   uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentStorageKey builds the object key for a document.
// The file name must already be sanitized.
func DocumentStorageKey(firmID, engagementID, documentID uuid.UUID, fileName string) string {
	return fmt.Sprintf("firms/%s/engagements/%s/%s/%s", firmID, engagementID, documentID, fileName)
}
