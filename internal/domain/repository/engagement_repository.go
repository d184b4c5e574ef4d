package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// EngagementFilter narrows an engagement listing. Zero values are ignored.
type EngagementFilter struct {
	Status    constants.EngagementStatus
	ClientID  *uuid.UUID
	AdvisorID *uuid.UUID
}

// EngagementRepository defines the interface for engagement storage.
type EngagementRepository interface {
	Save(ctx context.Context, engagement *models.Engagement) error
	Update(ctx context.Context, engagement *models.Engagement) error
	FindByID(ctx context.Context, firmID, id uuid.UUID) (*models.Engagement, error)
	List(ctx context.Context, firmID uuid.UUID, filter EngagementFilter, page Page) ([]*models.Engagement, int64, error)
	CountByStatus(ctx context.Context, firmID uuid.UUID, status constants.EngagementStatus) (int64, error)
	CountByClient(ctx context.Context, firmID, clientID uuid.UUID) (int64, error)
}
