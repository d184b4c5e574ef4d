package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// EngagementAppService defines the interface for engagement tracking
// EngagementAppService 定义了项目跟踪的应用服务接口
type EngagementAppService interface {
	// Create opens a new engagement; creating it active consumes the engagement quota
	Create(ctx context.Context, p *models.Principal, req *dto.CreateEngagementRequest) (*models.Engagement, error)

	// Get returns an engagement visible to the caller
	Get(ctx context.Context, p *models.Principal, engagementID string) (*models.Engagement, error)

	// Update edits descriptive fields; reassigning the advisor requires firm_admin
	Update(ctx context.Context, p *models.Principal, engagementID string, req *dto.UpdateEngagementRequest) (*models.Engagement, error)

	// Transition moves the engagement through its status machine
	Transition(ctx context.Context, p *models.Principal, engagementID string, req *dto.TransitionEngagementRequest) (*models.Engagement, error)

	// List returns a filtered page; advisors only see their own engagements
	List(ctx context.Context, p *models.Principal, req *dto.ListEngagementsRequest) (*dto.PageResult, error)
}

type engagementAppServiceImpl struct {
	tx     repository.Transactor
	repos  repository.Repositories
	quota  *quotaGuard
	audit  domainService.AuditService
	logger logger.Logger
}

// NewEngagementAppService creates a new instance of EngagementAppService
func NewEngagementAppService(
	tx repository.Transactor,
	repos repository.Repositories,
	cache domainService.SubscriptionCache,
	audit domainService.AuditService,
	log logger.Logger,
) EngagementAppService {
	log = log.WithComponent("EngagementAppService")
	return &engagementAppServiceImpl{
		tx:     tx,
		repos:  repos,
		quota:  newQuotaGuard(cache, log),
		audit:  audit,
		logger: log,
	}
}

func (s *engagementAppServiceImpl) Create(ctx context.Context, p *models.Principal, req *dto.CreateEngagementRequest) (*models.Engagement, error) {
	// 1. Validate caller and payload
	firmID, err := requireFirmRole(p, editorRoles...)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkDates(req.StartDate, req.TargetEndDate); err != nil {
		return nil, err
	}
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	advisorID := p.UserID
	if req.AdvisorID != "" {
		if advisorID, err = parseID("advisor_id", req.AdvisorID); err != nil {
			return nil, err
		}
	}
	if p.Role == constants.RoleAdvisor && advisorID != p.UserID {
		return nil, errors.ErrForbidden("advisors can only create engagements assigned to themselves")
	}
	status := req.Status
	if status == "" {
		status = constants.EngagementDraft
	}

	now := time.Now().UTC()
	e := &models.Engagement{
		ID:            uuid.New(),
		FirmID:        firmID,
		ClientID:      clientID,
		AdvisorID:     advisorID,
		Title:         req.Title,
		Type:          req.Type,
		Status:        status,
		StartDate:     req.StartDate,
		TargetEndDate: req.TargetEndDate,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.IsActive() && e.StartDate == nil {
		e.StartDate = &now
	}

	// 2. Check references and quota, then save
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Clients.FindByID(ctx, firmID, clientID); err != nil {
			return err
		}
		if err := checkAdvisor(ctx, repos, firmID, advisorID); err != nil {
			return err
		}
		if e.IsActive() {
			if err := s.quota.requireEngagementSlot(ctx, repos, firmID); err != nil {
				return err
			}
		}
		return repos.Engagements.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditEngagementCreated, "engagement", e.ID.String()).
			WithMetadata("type", string(e.Type)).
			WithMetadata("status", string(e.Status)))
	return e, nil
}

func (s *engagementAppServiceImpl) Get(ctx context.Context, p *models.Principal, engagementID string) (*models.Engagement, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	return visibleEngagement(ctx, s.repos, p, id)
}

func (s *engagementAppServiceImpl) Update(ctx context.Context, p *models.Principal, engagementID string, req *dto.UpdateEngagementRequest) (*models.Engagement, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var e *models.Engagement
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if e, err = editableEngagement(ctx, repos, p, id); err != nil {
			return err
		}
		if req.Title != nil {
			e.Title = *req.Title
		}
		if req.AdvisorID != nil {
			advisorID, err := parseID("advisor_id", *req.AdvisorID)
			if err != nil {
				return err
			}
			if advisorID != e.AdvisorID {
				if !p.IsFirmAdmin() {
					return errors.ErrForbidden("only firm admins can reassign engagements")
				}
				if err := checkAdvisor(ctx, repos, e.FirmID, advisorID); err != nil {
					return err
				}
				e.AdvisorID = advisorID
			}
		}
		if req.StartDate != nil {
			e.StartDate = req.StartDate
		}
		if req.TargetEndDate != nil {
			e.TargetEndDate = req.TargetEndDate
		}
		if req.Notes != nil {
			e.Notes = *req.Notes
		}
		if err := checkDates(e.StartDate, e.TargetEndDate); err != nil {
			return err
		}
		e.UpdatedAt = time.Now().UTC()
		return repos.Engagements.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *engagementAppServiceImpl) Transition(ctx context.Context, p *models.Principal, engagementID string, req *dto.TransitionEngagementRequest) (*models.Engagement, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var (
		e    *models.Engagement
		from constants.EngagementStatus
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if e, err = editableEngagement(ctx, repos, p, id); err != nil {
			return err
		}
		from = e.Status
		if !e.CanTransition(req.Status) {
			return errors.ErrWorkflowViolation("cannot move engagement from " + string(e.Status) + " to " + string(req.Status)).
				WithMetadata("from", string(e.Status)).
				WithMetadata("to", string(req.Status))
		}
		now := time.Now().UTC()
		if req.Status == constants.EngagementActive {
			if err := s.quota.requireEngagementSlot(ctx, repos, e.FirmID); err != nil {
				return err
			}
			if e.StartDate == nil {
				e.StartDate = &now
			}
		}
		e.Status = req.Status
		e.UpdatedAt = now
		return repos.Engagements.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditEngagementTransition, "engagement", e.ID.String()).
			WithMetadata("from", string(from)).
			WithMetadata("to", string(e.Status)))
	s.logger.Info(ctx, "Engagement status changed",
		logger.String("engagement_id", e.ID.String()),
		logger.String("from", string(from)),
		logger.String("to", string(e.Status)))
	return e, nil
}

func (s *engagementAppServiceImpl) List(ctx context.Context, p *models.Principal, req *dto.ListEngagementsRequest) (*dto.PageResult, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	filter := repository.EngagementFilter{Status: req.Status}
	if req.ClientID != "" {
		id, err := parseID("client_id", req.ClientID)
		if err != nil {
			return nil, err
		}
		filter.ClientID = &id
	}
	if req.AdvisorID != "" {
		id, err := parseID("advisor_id", req.AdvisorID)
		if err != nil {
			return nil, err
		}
		filter.AdvisorID = &id
	}
	if p.Role == constants.RoleAdvisor {
		self := p.UserID
		filter.AdvisorID = &self
	}

	page := req.ToPage()
	items, total, err := s.repos.Engagements.List(ctx, firmID, filter, page)
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(items, page, total), nil
}

// visibleEngagement loads an engagement the caller may read. Hidden engagements are reported as not_found.
func visibleEngagement(ctx context.Context, repos repository.Repositories, p *models.Principal, id uuid.UUID) (*models.Engagement, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	e, err := repos.Engagements.FindByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	if !canSeeEngagement(p, e) {
		return nil, errors.ErrNotFound("engagement", id.String())
	}
	return e, nil
}

// editableEngagement loads an engagement the caller may change.
func editableEngagement(ctx context.Context, repos repository.Repositories, p *models.Principal, id uuid.UUID) (*models.Engagement, error) {
	e, err := visibleEngagement(ctx, repos, p, id)
	if err != nil {
		return nil, err
	}
	if !canEditEngagement(p, e) {
		return nil, errors.ErrForbidden("read-only access to this engagement")
	}
	return e, nil
}

// checkAdvisor verifies the user can run engagements for the firm.
func checkAdvisor(ctx context.Context, repos repository.Repositories, firmID, userID uuid.UUID) error {
	u, err := repos.Users.FindInFirm(ctx, firmID, userID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return errors.ErrValidation(map[string]string{"advisor_id": "must reference a user of the firm"})
		}
		return err
	}
	if !u.Active || !u.Role.ConsumesSeat() {
		return errors.ErrValidation(map[string]string{"advisor_id": "must reference an active advisor or firm admin"})
	}
	return nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return errors.ErrValidation(map[string]string{"target_end_date": "must not be before start_date"})
	}
	return nil
}

//Personal.AI order the ending
