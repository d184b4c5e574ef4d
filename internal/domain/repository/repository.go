// Package repository defines the persistence contracts of the domain.
// Every tenant-owned lookup takes the firm ID; a row of another firm is reported as not_found.
package repository

import (
	"context"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// Page is a 1-based pagination request.
type Page struct {
	Page     int
	PageSize int
}

// Normalize applies defaults and bounds to the page request.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = constants.DefaultPageSize
	}
	if p.PageSize > constants.MaxPageSize {
		p.PageSize = constants.MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Transactor runs fn inside a database transaction. Repositories obtained from
// the callback's Repositories share that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories bundles every repository so a transaction can hand out a consistent set.
type Repositories struct {
	Users         UserRepository
	Firms         FirmRepository
	Subscriptions SubscriptionRepository
	Clients       ClientRepository
	Engagements   EngagementRepository
	Documents     DocumentRepository
	Reports       BBAReportRepository
	Workbooks     WorkbookRepository
	AuditEvents   AuditRepository
}
