package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// BBAReportRepository defines the interface for BBA report storage.
type BBAReportRepository interface {
	Save(ctx context.Context, report *models.BBAReport) error
	Update(ctx context.Context, report *models.BBAReport) error
	FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.BBAReport, error)

	// FindByIDAnyFirm is used by callers that enforce tenancy themselves (gRPC status, admin CLI).
	FindByIDAnyFirm(ctx context.Context, id uuid.UUID) (*models.BBAReport, error)

	ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.BBAReport, error)

	// HasOpenReport reports whether the engagement already has a report that is not failed.
	HasOpenReport(ctx context.Context, firmID, engagementID uuid.UUID) (bool, error)
}

// WorkbookRepository defines the interface for strategy workbook storage.
type WorkbookRepository interface {
	Save(ctx context.Context, wb *models.StrategyWorkbook) error
	Update(ctx context.Context, wb *models.StrategyWorkbook) error
	FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.StrategyWorkbook, error)
	FindByIDAnyFirm(ctx context.Context, id uuid.UUID) (*models.StrategyWorkbook, error)
	ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.StrategyWorkbook, error)
}

// AuditRepository defines the interface for the audit trail.
type AuditRepository interface {
	Save(ctx context.Context, event *models.AuditEvent) error
	ListByFirm(ctx context.Context, firmID uuid.UUID, eventType string, page Page) ([]*models.AuditEvent, int64, error)
}
