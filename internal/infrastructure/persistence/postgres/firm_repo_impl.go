package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// FirmRepoImpl implements FirmRepository using GORM.
type FirmRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewFirmRepository creates a new GORM-based firm repository instance.
func NewFirmRepository(db *gorm.DB, log logger.Logger) repository.FirmRepository {
	return &FirmRepoImpl{db: db, logger: log}
}

func (r *FirmRepoImpl) Save(ctx context.Context, firm *models.Firm) error {
	if err := r.db.WithContext(ctx).Create(firm).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict("a firm with this slug already exists").WithCause(err)
		}
		r.logger.Error(ctx, "Failed to create firm", err, logger.String("slug", firm.Slug))
		return translateError(err, "create firm", "firm", firm.ID.String())
	}
	return nil
}

func (r *FirmRepoImpl) Update(ctx context.Context, firm *models.Firm) error {
	if err := r.db.WithContext(ctx).Save(firm).Error; err != nil {
		r.logger.Error(ctx, "Failed to update firm", err, logger.String("firm_id", firm.ID.String()))
		return translateError(err, "update firm", "firm", firm.ID.String())
	}
	return nil
}

func (r *FirmRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Firm, error) {
	var firm models.Firm
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&firm).Error; err != nil {
		return nil, translateError(err, "find firm", "firm", id.String())
	}
	return &firm, nil
}

func (r *FirmRepoImpl) FindBySlug(ctx context.Context, slug string) (*models.Firm, error) {
	var firm models.Firm
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&firm).Error; err != nil {
		return nil, translateError(err, "find firm by slug", "firm", slug)
	}
	return &firm, nil
}

func (r *FirmRepoImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Firm{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, translateError(err, "check firm slug", "firm", slug)
	}
	return count > 0, nil
}

func (r *FirmRepoImpl) List(ctx context.Context, page repository.Page) ([]*models.Firm, int64, error) {
	page = page.Normalize()
	var (
		firms []*models.Firm
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.Firm{}).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count firms", "firm", "")
	}
	if err := q.Order("created_at ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&firms).Error; err != nil {
		r.logger.Error(ctx, "Failed to list firms", err)
		return nil, 0, translateError(err, "list firms", "firm", "")
	}
	return firms, total, nil
}

// SubscriptionRepoImpl implements SubscriptionRepository using GORM.
type SubscriptionRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewSubscriptionRepository creates a new GORM-based subscription repository instance.
func NewSubscriptionRepository(db *gorm.DB, log logger.Logger) repository.SubscriptionRepository {
	return &SubscriptionRepoImpl{db: db, logger: log}
}

func (r *SubscriptionRepoImpl) Save(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error(ctx, "Failed to create subscription", err, logger.String("firm_id", sub.FirmID.String()))
		return translateError(err, "create subscription", "subscription", sub.FirmID.String())
	}
	return nil
}

func (r *SubscriptionRepoImpl) Update(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		r.logger.Error(ctx, "Failed to update subscription", err, logger.String("firm_id", sub.FirmID.String()))
		return translateError(err, "update subscription", "subscription", sub.FirmID.String())
	}
	return nil
}

func (r *SubscriptionRepoImpl) FindByFirmID(ctx context.Context, firmID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("firm_id = ?", firmID).First(&sub).Error; err != nil {
		return nil, translateError(err, "find subscription", "subscription", firmID.String())
	}
	return &sub, nil
}

func (r *SubscriptionRepoImpl) CountReportsSince(ctx context.Context, firmID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BBAReport{}).
		Where("firm_id = ? AND created_at >= ? AND status <> ?", firmID, since, constants.ReportFailed).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count reports", "report", "")
	}
	return count, nil
}
