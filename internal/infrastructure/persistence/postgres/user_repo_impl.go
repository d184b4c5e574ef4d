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

// UserRepoImpl implements UserRepository using GORM.
type UserRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserRepository creates a new GORM-based user repository instance.
func NewUserRepository(db *gorm.DB, log logger.Logger) repository.UserRepository {
	return &UserRepoImpl{db: db, logger: log}
}

// Save persists a new user.
func (r *UserRepoImpl) Save(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict("a user with this email already exists").WithCause(err)
		}
		r.logger.Error(ctx, "Failed to create user", err, logger.String("user_id", user.ID.String()))
		return translateError(err, "create user", "user", user.ID.String())
	}
	return nil
}

// Update writes every mutable field of the user.
func (r *UserRepoImpl) Update(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Save(user)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update user", result.Error, logger.String("user_id", user.ID.String()))
		return translateError(result.Error, "update user", "user", user.ID.String())
	}
	return nil
}

// FindByID retrieves a user by ID.
func (r *UserRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err, "find user", "user", id.String())
	}
	return &user, nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepoImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err, "find user by email", "user", email)
	}
	return &user, nil
}

// FindInFirm retrieves a user belonging to firmID.
func (r *UserRepoImpl) FindInFirm(ctx context.Context, firmID, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ? AND firm_id = ?", id, firmID).First(&user).Error; err != nil {
		return nil, translateError(err, "find user", "user", id.String())
	}
	return &user, nil
}

// ListByFirm returns a page of the firm's users ordered by creation.
func (r *UserRepoImpl) ListByFirm(ctx context.Context, firmID uuid.UUID, page repository.Page) ([]*models.User, int64, error) {
	page = page.Normalize()
	var (
		users []*models.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("firm_id = ?", firmID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		r.logger.Error(ctx, "Failed to count users", err, logger.String("firm_id", firmID.String()))
		return nil, 0, translateError(err, "count users", "user", "")
	}
	if err := q.Order("created_at ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&users).Error; err != nil {
		r.logger.Error(ctx, "Failed to list users", err, logger.String("firm_id", firmID.String()))
		return nil, 0, translateError(err, "list users", "user", "")
	}
	return users, total, nil
}

// CountActiveByRoles counts active users of the firm holding any of roles.
func (r *UserRepoImpl) CountActiveByRoles(ctx context.Context, firmID uuid.UUID, roles ...constants.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("firm_id = ? AND active = ? AND role IN ?", firmID, true, roles).
		Count(&count).Error
	if err != nil {
		return 0, translateError(err, "count users", "user", "")
	}
	return count, nil
}
