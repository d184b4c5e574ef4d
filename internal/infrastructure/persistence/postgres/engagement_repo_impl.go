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

// EngagementRepoImpl implements EngagementRepository using GORM.
type EngagementRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewEngagementRepository creates a new GORM-based engagement repository instance.
func NewEngagementRepository(db *gorm.DB, log logger.Logger) repository.EngagementRepository {
	return &EngagementRepoImpl{db: db, logger: log}
}

func (r *EngagementRepoImpl) Save(ctx context.Context, e *models.Engagement) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		r.logger.Error(ctx, "Failed to create engagement", err, logger.String("firm_id", e.FirmID.String()))
		return translateError(err, "create engagement", "engagement", e.ID.String())
	}
	return nil
}

func (r *EngagementRepoImpl) Update(ctx context.Context, e *models.Engagement) error {
	if err := updateInFirm(ctx, r.db, e, e.FirmID, "engagement", e.ID.String()); err != nil {
		if !errors.IsNotFoundError(err) {
			r.logger.Error(ctx, "Failed to update engagement", err, logger.String("engagement_id", e.ID.String()))
		}
		return err
	}
	return nil
}

func (r *EngagementRepoImpl) FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Engagement, error) {
	var e models.Engagement
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&e).Error; err != nil {
		return nil, translateError(err, "find engagement", "engagement", id.String())
	}
	return &e, nil
}

func (r *EngagementRepoImpl) List(ctx context.Context, firmID uuid.UUID, filter repository.EngagementFilter, page repository.Page) ([]*models.Engagement, int64, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Engagement{}).Where("firm_id = ?", firmID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.AdvisorID != nil {
		q = q.Where("advisor_id = ?", *filter.AdvisorID)
	}
	q = q.Session(&gorm.Session{})

	var (
		engagements []*models.Engagement
		total       int64
	)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count engagements", "engagement", "")
	}
	if err := q.Order("created_at DESC").Limit(page.PageSize).Offset(page.Offset()).Find(&engagements).Error; err != nil {
		r.logger.Error(ctx, "Failed to list engagements", err, logger.String("firm_id", firmID.String()))
		return nil, 0, translateError(err, "list engagements", "engagement", "")
	}
	return engagements, total, nil
}

func (r *EngagementRepoImpl) CountByStatus(ctx context.Context, firmID uuid.UUID, status constants.EngagementStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("firm_id = ? AND status = ?", firmID, status).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count engagements", "engagement", "")
	}
	return count, nil
}

func (r *EngagementRepoImpl) CountByClient(ctx context.Context, firmID, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Engagement{}).
		Where("firm_id = ? AND client_id = ?", firmID, clientID).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count engagements", "engagement", "")
	}
	return count, nil
}
