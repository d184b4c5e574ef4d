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

// FirmAppService defines the interface for tenant and subscription management
// FirmAppService 定义了租户与订阅管理的应用服务接口
type FirmAppService interface {
	GetFirm(ctx context.Context, p *models.Principal) (*dto.FirmResponse, error)
	UpdateFirm(ctx context.Context, p *models.Principal, req *dto.UpdateFirmRequest) (*models.Firm, error)
	ChangePlan(ctx context.Context, p *models.Principal, req *dto.ChangePlanRequest) (*models.Subscription, error)
	GetUsage(ctx context.Context, p *models.Principal) (*dto.UsageResponse, error)

	// SetFirmStatus suspends or reactivates a firm (platform admins only)
	SetFirmStatus(ctx context.Context, p *models.Principal, firmID string, req *dto.SetFirmStatusRequest) (*models.Firm, error)
	// ListFirms returns every firm (platform admins only)
	ListFirms(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error)

	// CreateFirm and SetPlan are trusted operations used by the admin CLI
	CreateFirm(ctx context.Context, req *dto.CreateFirmRequest) (*dto.FirmResponse, error)
	SetPlan(ctx context.Context, firmRef string, plan constants.SubscriptionPlan) (*models.Subscription, error)
}

type firmAppServiceImpl struct {
	tx     repository.Transactor
	repos  repository.Repositories
	hasher domainService.PasswordHasher
	quota  *quotaGuard
	audit  domainService.AuditService
	logger logger.Logger
}

// NewFirmAppService creates a new instance of FirmAppService
func NewFirmAppService(
	tx repository.Transactor,
	repos repository.Repositories,
	hasher domainService.PasswordHasher,
	cache domainService.SubscriptionCache,
	audit domainService.AuditService,
	log logger.Logger,
) FirmAppService {
	log = log.WithComponent("FirmAppService")
	return &firmAppServiceImpl{
		tx:     tx,
		repos:  repos,
		hasher: hasher,
		quota:  newQuotaGuard(cache, log),
		audit:  audit,
		logger: log,
	}
}

func (s *firmAppServiceImpl) GetFirm(ctx context.Context, p *models.Principal) (*dto.FirmResponse, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	firm, err := s.repos.Firms.FindByID(ctx, firmID)
	if err != nil {
		return nil, err
	}
	sub, err := s.quota.subscription(ctx, s.repos, firmID)
	if err != nil {
		return nil, err
	}
	return &dto.FirmResponse{Firm: firm, Subscription: sub}, nil
}

func (s *firmAppServiceImpl) UpdateFirm(ctx context.Context, p *models.Principal, req *dto.UpdateFirmRequest) (*models.Firm, error) {
	firmID, err := requireFirmRole(p, constants.RoleFirmAdmin)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	firm, err := s.repos.Firms.FindByID(ctx, firmID)
	if err != nil {
		return nil, err
	}
	old := firm.Name
	firm.Name = req.Name
	firm.UpdatedAt = time.Now().UTC()
	if err := s.repos.Firms.Update(ctx, firm); err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditFirmUpdated, "firm", firm.ID.String()).
			WithMetadata("old_name", old).
			WithMetadata("new_name", firm.Name))
	return firm, nil
}

// ChangePlan switches the caller's firm to another plan.
func (s *firmAppServiceImpl) ChangePlan(ctx context.Context, p *models.Principal, req *dto.ChangePlanRequest) (*models.Subscription, error) {
	firmID, err := requireFirmRole(p, constants.RoleFirmAdmin)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	sub, from, err := s.changePlan(ctx, firmID, req.Plan)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditPlanChanged, "subscription", sub.ID.String()).
			WithMetadata("from", string(from)).
			WithMetadata("to", string(sub.Plan)))
	return sub, nil
}

// SetPlan is ChangePlan for trusted callers. firmRef is a firm ID or slug.
func (s *firmAppServiceImpl) SetPlan(ctx context.Context, firmRef string, plan constants.SubscriptionPlan) (*models.Subscription, error) {
	if _, ok := models.LimitsFor(plan); !ok {
		return nil, errors.ErrInvalidParameterFormat("plan", "starter|professional|enterprise")
	}
	firm, err := s.resolveFirm(ctx, firmRef)
	if err != nil {
		return nil, err
	}
	sub, from, err := s.changePlan(ctx, firm.ID, plan)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		models.NewAuditEvent(&firm.ID, constants.AuditPlanChanged, "subscription", sub.ID.String()).
			WithMetadata("from", string(from)).
			WithMetadata("to", string(sub.Plan)).
			WithMetadata("source", "admin_cli"))
	return sub, nil
}

// changePlan applies plan after checking current usage fits its limits.
// A subscription that is not active becomes active with a fresh billing period.
func (s *firmAppServiceImpl) changePlan(ctx context.Context, firmID uuid.UUID, plan constants.SubscriptionPlan) (*models.Subscription, constants.SubscriptionPlan, error) {
	limits, ok := models.LimitsFor(plan)
	if !ok {
		return nil, "", errors.ErrInvalidParameterFormat("plan", "starter|professional|enterprise")
	}

	var (
		sub  *models.Subscription
		from constants.SubscriptionPlan
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		sub, err = repos.Subscriptions.FindByFirmID(ctx, firmID)
		if err != nil {
			return err
		}
		from = sub.Plan
		usage, err := s.quota.usage(ctx, repos, sub)
		if err != nil {
			return err
		}
		if !limits.Fits(usage) {
			return errors.ErrWorkflowViolation("current usage exceeds the limits of plan "+string(plan)).
				WithMetadata("seats_used", usage.SeatsUsed).
				WithMetadata("active_engagements", usage.ActiveEngagements).
				WithMetadata("ai_reports_this_period", usage.AIReportsThisPeriod)
		}

		now := time.Now().UTC()
		sub.ApplyPlan(plan)
		if sub.Status != constants.SubscriptionActive {
			sub.Status = constants.SubscriptionActive
			sub.CurrentPeriodStart = now
			sub.CurrentPeriodEnd = now.Add(constants.BillingPeriod)
		}
		sub.UpdatedAt = now
		return repos.Subscriptions.Update(ctx, sub)
	})
	if err != nil {
		return nil, "", err
	}
	s.quota.invalidate(ctx, firmID)
	s.logger.Info(ctx, "Plan changed",
		logger.String("firm_id", firmID.String()),
		logger.String("from", string(from)),
		logger.String("to", string(plan)))
	return sub, from, nil
}

func (s *firmAppServiceImpl) GetUsage(ctx context.Context, p *models.Principal) (*dto.UsageResponse, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	sub, err := s.quota.subscription(ctx, s.repos, firmID)
	if err != nil {
		return nil, err
	}
	usage, err := s.quota.usage(ctx, s.repos, sub)
	if err != nil {
		return nil, err
	}
	return &dto.UsageResponse{
		Plan:   sub.Plan,
		Status: sub.Status,
		Usage:  usage,
		Limits: sub.Limits(),
	}, nil
}

func (s *firmAppServiceImpl) SetFirmStatus(ctx context.Context, p *models.Principal, firmID string, req *dto.SetFirmStatusRequest) (*models.Firm, error) {
	if err := requireRole(p, constants.RolePlatformAdmin); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	id, err := parseID("firm_id", firmID)
	if err != nil {
		return nil, err
	}
	firm, err := s.repos.Firms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if firm.Status == req.Status {
		return firm, nil
	}
	old := firm.Status
	firm.Status = req.Status
	firm.UpdatedAt = time.Now().UTC()
	if err := s.repos.Firms.Update(ctx, firm); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		models.NewAuditEvent(&firm.ID, constants.AuditFirmStatusChanged, "firm", firm.ID.String()).
			WithActor(p.UserID).
			WithMetadata("from", string(old)).
			WithMetadata("to", string(firm.Status)))
	s.logger.Info(ctx, "Firm status changed", logger.String("firm_id", firm.ID.String()), logger.String("status", string(firm.Status)))
	return firm, nil
}

func (s *firmAppServiceImpl) ListFirms(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error) {
	if err := requireRole(p, constants.RolePlatformAdmin); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(&page); err != nil {
		return nil, err
	}
	firms, total, err := s.repos.Firms.List(ctx, page.ToPage())
	if err != nil {
		return nil, err
	}
	return dto.NewPageResult(firms, page.ToPage(), total), nil
}

// CreateFirm provisions a firm on an active plan with its first admin.
func (s *firmAppServiceImpl) CreateFirm(ctx context.Context, req *dto.CreateFirmRequest) (*dto.FirmResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(req.AdminPassword); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.AdminEmail)
	hash, err := s.hasher.Hash(req.AdminPassword)
	if err != nil {
		return nil, asServerError(err, "failed to hash password")
	}

	var (
		firm *models.Firm
		sub  *models.Subscription
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByEmail(ctx, email); err == nil {
			return errors.ErrConflict("email is already registered")
		} else if !errors.IsNotFoundError(err) {
			return err
		}
		slug, err := uniqueSlug(ctx, repos.Firms, req.Name)
		if err != nil {
			return err
		}
		firm = models.NewFirm(req.Name, slug)
		if err := repos.Firms.Save(ctx, firm); err != nil {
			return err
		}

		now := time.Now().UTC()
		sub = models.NewTrialSubscription(firm.ID, now)
		sub.ApplyPlan(req.Plan)
		sub.Status = constants.SubscriptionActive
		sub.CurrentPeriodEnd = now.Add(constants.BillingPeriod)
		if err := repos.Subscriptions.Save(ctx, sub); err != nil {
			return err
		}
		admin := models.NewUser(&firm.ID, email, req.AdminName, hash, constants.RoleFirmAdmin)
		return repos.Users.Save(ctx, admin)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Firm provisioned", logger.String("firm_id", firm.ID.String()), logger.String("plan", string(sub.Plan)))
	return &dto.FirmResponse{Firm: firm, Subscription: sub}, nil
}

func (s *firmAppServiceImpl) resolveFirm(ctx context.Context, ref string) (*models.Firm, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repos.Firms.FindByID(ctx, id)
	}
	return s.repos.Firms.FindBySlug(ctx, ref)
}

//Personal.AI order the ending
