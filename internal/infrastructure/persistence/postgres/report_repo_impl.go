package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// BBAReportRepoImpl implements BBAReportRepository using GORM.
// Step outputs are stored as JSON columns through GORM's json serializer.
type BBAReportRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewBBAReportRepository creates a new GORM-based report repository instance.
func NewBBAReportRepository(db *gorm.DB, log logger.Logger) repository.BBAReportRepository {
	return &BBAReportRepoImpl{db: db, logger: log}
}

func (r *BBAReportRepoImpl) Save(ctx context.Context, report *models.BBAReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		r.logger.Error(ctx, "Failed to create report", err, logger.String("engagement_id", report.EngagementID.String()))
		return translateError(err, "create report", "report", report.ID.String())
	}
	return nil
}

func (r *BBAReportRepoImpl) Update(ctx context.Context, report *models.BBAReport) error {
	if err := updateInFirm(ctx, r.db, report, report.FirmID, "report", report.ID.String()); err != nil {
		if !errors.IsNotFoundError(err) {
			r.logger.Error(ctx, "Failed to update report", err, logger.String("report_id", report.ID.String()))
		}
		return err
	}
	return nil
}

func (r *BBAReportRepoImpl) FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.BBAReport, error) {
	var report models.BBAReport
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&report).Error; err != nil {
		return nil, translateError(err, "find report", "report", id.String())
	}
	return &report, nil
}

func (r *BBAReportRepoImpl) FindByIDAnyFirm(ctx context.Context, id uuid.UUID) (*models.BBAReport, error) {
	var report models.BBAReport
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, translateError(err, "find report", "report", id.String())
	}
	return &report, nil
}

func (r *BBAReportRepoImpl) ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.BBAReport, error) {
	var reports []*models.BBAReport
	err := r.db.WithContext(ctx).
		Where("firm_id = ? AND engagement_id = ?", firmID, engagementID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list reports", err, logger.String("engagement_id", engagementID.String()))
		return nil, translateError(err, "list reports", "report", "")
	}
	return reports, nil
}

func (r *BBAReportRepoImpl) HasOpenReport(ctx context.Context, firmID, engagementID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BBAReport{}).
		Where("firm_id = ? AND engagement_id = ? AND status <> ?", firmID, engagementID, constants.ReportFailed).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, "count reports", "report", "")
	}
	return count > 0, nil
}

// WorkbookRepoImpl implements WorkbookRepository using GORM.
type WorkbookRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewWorkbookRepository creates a new GORM-based workbook repository instance.
func NewWorkbookRepository(db *gorm.DB, log logger.Logger) repository.WorkbookRepository {
	return &WorkbookRepoImpl{db: db, logger: log}
}

func (r *WorkbookRepoImpl) Save(ctx context.Context, wb *models.StrategyWorkbook) error {
	if err := r.db.WithContext(ctx).Create(wb).Error; err != nil {
		r.logger.Error(ctx, "Failed to create workbook", err, logger.String("engagement_id", wb.EngagementID.String()))
		return translateError(err, "create workbook", "workbook", wb.ID.String())
	}
	return nil
}

func (r *WorkbookRepoImpl) Update(ctx context.Context, wb *models.StrategyWorkbook) error {
	if err := updateInFirm(ctx, r.db, wb, wb.FirmID, "workbook", wb.ID.String()); err != nil {
		if !errors.IsNotFoundError(err) {
			r.logger.Error(ctx, "Failed to update workbook", err, logger.String("workbook_id", wb.ID.String()))
		}
		return err
	}
	return nil
}

func (r *WorkbookRepoImpl) FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.StrategyWorkbook, error) {
	var wb models.StrategyWorkbook
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&wb).Error; err != nil {
		return nil, translateError(err, "find workbook", "workbook", id.String())
	}
	return &wb, nil
}

func (r *WorkbookRepoImpl) FindByIDAnyFirm(ctx context.Context, id uuid.UUID) (*models.StrategyWorkbook, error) {
	var wb models.StrategyWorkbook
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wb).Error; err != nil {
		return nil, translateError(err, "find workbook", "workbook", id.String())
	}
	return &wb, nil
}

func (r *WorkbookRepoImpl) ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.StrategyWorkbook, error) {
	var wbs []*models.StrategyWorkbook
	err := r.db.WithContext(ctx).
		Where("firm_id = ? AND engagement_id = ?", firmID, engagementID).
		Order("created_at DESC").
		Find(&wbs).Error
	if err != nil {
		return nil, translateError(err, "list workbooks", "workbook", "")
	}
	return wbs, nil
}
