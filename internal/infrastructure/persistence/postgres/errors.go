package postgres

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/pkg/errors"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto application errors.
func translateError(err error, operation, resource, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrNotFound(resource, id)
	}
	if isUniqueViolation(err) {
		return errors.ErrConflict(resource + " already exists").WithCause(err)
	}
	return errors.ErrDatabase(operation, err)
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// updateInFirm writes every column of model, matched by primary key and firm.
// A row owned by another firm is reported as not found.
func updateInFirm(ctx context.Context, db *gorm.DB, model interface{}, firmID uuid.UUID, resource, id string) error {
	result := db.WithContext(ctx).Model(model).Where("firm_id = ?", firmID).Select("*").Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "update "+resource, resource, id)
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound(resource, id)
	}
	return nil
}
