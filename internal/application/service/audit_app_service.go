package service

import (
	"context"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// AuditAppService exposes the firm's audit trail to firm admins.
type AuditAppService interface {
	List(ctx context.Context, p *models.Principal, req *dto.ListAuditEventsRequest) (*dto.PageResult, error)
}

type auditAppServiceImpl struct {
	repo repository.AuditRepository
}

// NewAuditAppService creates a new instance of AuditAppService
func NewAuditAppService(repo repository.AuditRepository) AuditAppService {
	return &auditAppServiceImpl{repo: repo}
}

func (s *auditAppServiceImpl) List(ctx context.Context, p *models.Principal, req *dto.ListAuditEventsRequest) (*dto.PageResult, error) {
	firmID, err := requireFirmRole(p, constants.RoleFirmAdmin)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	page := req.ToPage()
	events, total, err := s.repo.ListByFirm(ctx, firmID, req.Type, page)
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(events, page, total), nil
}

//Personal.AI order the ending
