package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// DocumentRepository defines the interface for document metadata storage.
type DocumentRepository interface {
	Save(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, firmID, id uuid.UUID) error
	FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Document, error)
	FindBySHA256(ctx context.Context, firmID, engagementID uuid.UUID, sha string) (*models.Document, error)
	ListByEngagement(ctx context.Context, firmID, engagementID uuid.UUID) ([]*models.Document, error)
}
