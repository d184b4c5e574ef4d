package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// ClientRepository defines the interface for the firm's clients.
type ClientRepository interface {
	Save(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, firmID, id uuid.UUID) error
	FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Client, error)
	List(ctx context.Context, firmID uuid.UUID, page Page) ([]*models.Client, int64, error)
}
