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

// ClientRepoImpl implements ClientRepository using GORM.
type ClientRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewClientRepository creates a new GORM-based client repository instance.
func NewClientRepository(db *gorm.DB, log logger.Logger) repository.ClientRepository {
	return &ClientRepoImpl{db: db, logger: log}
}

func (r *ClientRepoImpl) Save(ctx context.Context, client *models.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		r.logger.Error(ctx, "Failed to create client", err, logger.String("firm_id", client.FirmID.String()))
		return translateError(err, "create client", "client", client.ID.String())
	}
	return nil
}

func (r *ClientRepoImpl) Update(ctx context.Context, client *models.Client) error {
	if err := updateInFirm(ctx, r.db, client, client.FirmID, "client", client.ID.String()); err != nil {
		if !errors.IsNotFoundError(err) {
			r.logger.Error(ctx, "Failed to update client", err, logger.String("client_id", client.ID.String()))
		}
		return err
	}
	return nil
}

func (r *ClientRepoImpl) Delete(ctx context.Context, firmID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).Delete(&models.Client{})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to delete client", result.Error, logger.String("client_id", id.String()))
		return translateError(result.Error, "delete client", "client", id.String())
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound("client", id.String())
	}
	return nil
}

func (r *ClientRepoImpl) FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&client).Error; err != nil {
		return nil, translateError(err, "find client", "client", id.String())
	}
	return &client, nil
}

func (r *ClientRepoImpl) List(ctx context.Context, firmID uuid.UUID, page repository.Page) ([]*models.Client, int64, error) {
	page = page.Normalize()
	var (
		clients []*models.Client
		total   int64
	)
	q := r.db.WithContext(ctx).Model(&models.Client{}).Where("firm_id = ?", firmID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count clients", "client", "")
	}
	if err := q.Order("name ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&clients).Error; err != nil {
		r.logger.Error(ctx, "Failed to list clients", err, logger.String("firm_id", firmID.String()))
		return nil, 0, translateError(err, "list clients", "client", "")
	}
	return clients, total, nil
}
