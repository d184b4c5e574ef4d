package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
)

// AuditRepoImpl stores audit events in a relational database.
type AuditRepoImpl struct {
	db *gorm.DB
}

// NewAuditRepository creates a new GORM-based audit repository.
func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &AuditRepoImpl{db: db}
}

// Save saves an AuditEvent to the database.
func (r *AuditRepoImpl) Save(ctx context.Context, event *models.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return translateError(err, "create audit event", "audit_event", event.ID.String())
	}
	return nil
}

// ListByFirm returns the firm's events, newest first, optionally filtered by type.
func (r *AuditRepoImpl) ListByFirm(ctx context.Context, firmID uuid.UUID, eventType string, page repository.Page) ([]*models.AuditEvent, int64, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.AuditEvent{}).Where("firm_id = ?", firmID)
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	q = q.Session(&gorm.Session{})

	var (
		events []*models.AuditEvent
		total  int64
	)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count audit events", "audit_event", "")
	}
	if err := q.Order("created_at DESC").Limit(page.PageSize).Offset(page.Offset()).Find(&events).Error; err != nil {
		return nil, 0, translateError(err, "list audit events", "audit_event", "")
	}
	return events, total, nil
}
