package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// DocumentRepoImpl implements DocumentRepository using GORM.
type DocumentRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewDocumentRepository creates a new GORM-based document repository instance.
func NewDocumentRepository(db *gorm.DB, log logger.Logger) repository.DocumentRepository {
	return &DocumentRepoImpl{db: db, logger: log}
}

func (r *DocumentRepoImpl) Save(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		r.logger.Error(ctx, "Failed to create document", err, logger.String("engagement_id", doc.EngagementID.String()))
		return translateError(err, "create document", "document", doc.ID.String())
	}
	return nil
}

func (r *DocumentRepoImpl) Delete(ctx context.Context, firmID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).Delete(&models.Document{})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to delete document", result.Error, logger.String("document_id", id.String()))
		return translateError(result.Error, "delete document", "document", id.String())
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound("document", id.String())
	}
	return nil
}

func (r *DocumentRepoImpl) FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&doc).Error; err != nil {
		return nil, translateError(err, "find document", "document", id.String())
	}
	return &doc, nil
}

func (r *DocumentRepoImpl) FindBySHA256(ctx context.Context, firmID, engagementID uuid.UUID, sha string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Where("firm_id = ? AND engagement_id = ? AND sha256 = ?", firmID, engagementID, sha).
		First(&doc).Error
	if err != nil {
		return nil, translateError(err, "find document by hash", "document", sha)
	}
	return &doc, nil
}

func (r *DocumentRepoImpl) ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.db.WithContext(ctx).
		Where("firm_id = ? AND engagement_id = ?", firmID, engagementID).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list documents", err, logger.String("engagement_id", engagementID.String()))
		return nil, translateError(err, "list documents", "document", "")
	}
	return docs, nil
}
