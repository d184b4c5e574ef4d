package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
)

// UserRepository defines the interface for interacting with user storage.
type UserRepository interface {
	// Save persists a new user. A duplicate email is reported as conflict.
	Save(ctx context.Context, user *models.User) error

	// Update writes every mutable field of the user.
	Update(ctx context.Context, user *models.User) error

	// FindByID retrieves a user regardless of firm; used for token subjects.
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByEmail retrieves a user by lower-cased email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindInFirm retrieves a user only if it belongs to firmID.
	FindInFirm(ctx context.Context, firmID, id uuid.UUID) (*models.User, error)

	// ListByFirm returns a page of the firm's users and the total count.
	ListByFirm(ctx context.Context, firmID uuid.UUID, page Page) ([]*models.User, int64, error)

	// CountActiveByRoles counts active users of the firm holding any of roles.
	CountActiveByRoles(ctx context.Context, firmID uuid.UUID, roles ...constants.Role) (int64, error)
}
