package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// FirmRepository defines the interface for interacting with firm storage.
type FirmRepository interface {
	Save(ctx context.Context, firm *models.Firm) error
	Update(ctx context.Context, firm *models.Firm) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Firm, error)
	FindBySlug(ctx context.Context, slug string) (*models.Firm, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, page Page) ([]*models.Firm, int64, error)
}

// SubscriptionRepository defines the interface for subscription storage.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	FindByFirmID(ctx context.Context, firmID uuid.UUID) (*models.Subscription, error)

	// CountReportsSince counts BBA reports started by the firm at or after since,
	// excluding failed reports.
	CountReportsSince(ctx context.Context, firmID uuid.UUID, since time.Time) (int64, error)
}
