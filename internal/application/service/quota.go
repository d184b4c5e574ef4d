package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// quotaGuard loads subscriptions through the cache and enforces plan limits.
// quotaGuard 通过缓存加载订阅并执行计划配额。
type quotaGuard struct {
	cache  domainService.SubscriptionCache
	now    func() time.Time
	logger logger.Logger
}

func newQuotaGuard(cache domainService.SubscriptionCache, log logger.Logger) *quotaGuard {
	return &quotaGuard{cache: cache, now: time.Now, logger: log}
}

// subscription returns the firm's subscription, rolling an elapsed billing period forward.
func (q *quotaGuard) subscription(ctx context.Context, repos repository.Repositories, firmID uuid.UUID) (*models.Subscription, error) {
	load := func(ctx context.Context) (*models.Subscription, error) {
		return repos.Subscriptions.FindByFirmID(ctx, firmID)
	}
	var (
		sub *models.Subscription
		err error
	)
	if q.cache != nil {
		sub, err = q.cache.GetOrLoad(ctx, firmID, load)
	} else {
		sub, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}

	if sub.RollPeriod(q.now()) {
		sub.UpdatedAt = q.now().UTC()
		if err := repos.Subscriptions.Update(ctx, sub); err != nil {
			return nil, err
		}
		q.invalidate(ctx, firmID)
		q.logger.Info(ctx, "Subscription period rolled forward",
			logger.String("firm_id", firmID.String()),
			logger.String("period_start", sub.CurrentPeriodStart.Format(time.RFC3339)))
	}
	return sub, nil
}

// invalidate drops cached subscription copies; cache errors are logged only.
func (q *quotaGuard) invalidate(ctx context.Context, firmID uuid.UUID) {
	if q.cache == nil {
		return
	}
	if err := q.cache.Invalidate(ctx, firmID); err != nil {
		q.logger.Warn(ctx, "Failed to invalidate subscription cache", logger.String("firm_id", firmID.String()), logger.Err(err))
	}
}

// usage measures the firm's consumption against the subscription's current period.
func (q *quotaGuard) usage(ctx context.Context, repos repository.Repositories, sub *models.Subscription) (models.Usage, error) {
	seats, err := repos.Users.CountActiveByRoles(ctx, sub.FirmID, constants.RoleFirmAdmin, constants.RoleAdvisor)
	if err != nil {
		return models.Usage{}, err
	}
	active, err := repos.Engagements.CountByStatus(ctx, sub.FirmID, constants.EngagementActive)
	if err != nil {
		return models.Usage{}, err
	}
	reports, err := repos.Subscriptions.CountReportsSince(ctx, sub.FirmID, sub.CurrentPeriodStart)
	if err != nil {
		return models.Usage{}, err
	}
	return models.Usage{
		SeatsUsed:           int(seats),
		ActiveEngagements:   int(active),
		AIReportsThisPeriod: int(reports),
		PeriodStart:         sub.CurrentPeriodStart,
		PeriodEnd:           sub.CurrentPeriodEnd,
	}, nil
}

// entitled loads the subscription and refuses suspended firms and lapsed subscriptions.
func (q *quotaGuard) entitled(ctx context.Context, repos repository.Repositories, firmID uuid.UUID) (*models.Subscription, error) {
	firm, err := repos.Firms.FindByID(ctx, firmID)
	if err != nil {
		return nil, err
	}
	if !firm.IsActive() {
		return nil, errors.ErrForbidden("firm is suspended")
	}
	sub, err := q.subscription(ctx, repos, firmID)
	if err != nil {
		return nil, err
	}
	if !sub.Entitled(q.now()) {
		return nil, errors.NewError(errors.CodeQuotaExceeded, http.StatusPaymentRequired,
			"The subscription does not allow new usage", "subscription is "+string(sub.Status)).
			WithMetadata("subscription_status", string(sub.Status))
	}
	return sub, nil
}

// requireSeat fails when the firm cannot add another seat-consuming user.
func (q *quotaGuard) requireSeat(ctx context.Context, repos repository.Repositories, firmID uuid.UUID) error {
	sub, err := q.entitled(ctx, repos, firmID)
	if err != nil {
		return err
	}
	used, err := repos.Users.CountActiveByRoles(ctx, firmID, constants.RoleFirmAdmin, constants.RoleAdvisor)
	if err != nil {
		return err
	}
	if !sub.CanAddSeat(q.now(), int(used)) {
		return errors.ErrQuotaExceeded("seats", sub.SeatLimit)
	}
	return nil
}

// requireEngagementSlot fails when another engagement cannot become active.
func (q *quotaGuard) requireEngagementSlot(ctx context.Context, repos repository.Repositories, firmID uuid.UUID) error {
	sub, err := q.entitled(ctx, repos, firmID)
	if err != nil {
		return err
	}
	active, err := repos.Engagements.CountByStatus(ctx, firmID, constants.EngagementActive)
	if err != nil {
		return err
	}
	if !sub.CanOpenEngagement(q.now(), int(active)) {
		return errors.ErrQuotaExceeded("active_engagements", sub.EngagementLimit)
	}
	return nil
}

// requireReportQuota fails when the period's AI report allowance is used up.
func (q *quotaGuard) requireReportQuota(ctx context.Context, repos repository.Repositories, firmID uuid.UUID) error {
	sub, err := q.entitled(ctx, repos, firmID)
	if err != nil {
		return err
	}
	used, err := repos.Subscriptions.CountReportsSince(ctx, firmID, sub.CurrentPeriodStart)
	if err != nil {
		return err
	}
	if !sub.CanGenerateReport(q.now(), int(used)) {
		return errors.ErrQuotaExceeded("ai_reports_per_month", sub.AIReportsPerMonth)
	}
	return nil
}

//Personal.AI order the ending
