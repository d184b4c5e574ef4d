package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Store builds repositories on a shared *gorm.DB and runs transactions across them.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Repositories returns repositories bound to the store's connection.
func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(s.db, s.logger)
}

// WithinTransaction runs fn in a transaction; fn's error rolls it back.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repositoriesFor(tx, s.logger))
	})
}

func repositoriesFor(db *gorm.DB, log logger.Logger) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(db, log),
		Firms:         NewFirmRepository(db, log),
		Subscriptions: NewSubscriptionRepository(db, log),
		Clients:       NewClientRepository(db, log),
		Engagements:   NewEngagementRepository(db, log),
		Documents:     NewDocumentRepository(db, log),
		Reports:       NewBBAReportRepository(db, log),
		Workbooks:     NewWorkbookRepository(db, log),
		AuditEvents:   NewAuditRepository(db),
	}
}
