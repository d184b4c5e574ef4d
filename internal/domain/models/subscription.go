package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// PlanLimits are the quotas attached to a plan. Zero means unlimited.
type PlanLimits struct {
	SeatLimit         int `json:"seat_limit"`
	EngagementLimit   int `json:"engagement_limit"`
	AIReportsPerMonth int `json:"ai_reports_per_month"`
}

var planLimits = map[constants.SubscriptionPlan]PlanLimits{
	constants.PlanStarter:      {SeatLimit: 3, EngagementLimit: 10, AIReportsPerMonth: 5},
	constants.PlanProfessional: {SeatLimit: 15, EngagementLimit: 100, AIReportsPerMonth: 50},
	constants.PlanEnterprise:   {SeatLimit: constants.Unlimited, EngagementLimit: constants.Unlimited, AIReportsPerMonth: constants.Unlimited},
}

// LimitsFor returns the default limits of plan and whether the plan exists.
func LimitsFor(plan constants.SubscriptionPlan) (PlanLimits, bool) {
	l, ok := planLimits[plan]
	return l, ok
}

// allows reports whether one more unit stays within limit.
func allows(limit, used int) bool {
	return limit == constants.Unlimited || used < limit
}

// Fits reports whether the given usage fits inside the limits.
func (l PlanLimits) Fits(u Usage) bool {
	within := func(limit, used int) bool { return limit == constants.Unlimited || used <= limit }
	return within(l.SeatLimit, u.SeatsUsed) &&
		within(l.EngagementLimit, u.ActiveEngagements) &&
		within(l.AIReportsPerMonth, u.AIReportsThisPeriod)
}

// Usage is a snapshot of quota consumption for a firm.
type Usage struct {
	SeatsUsed           int       `json:"seats_used"`
	ActiveEngagements   int       `json:"active_engagements"`
	AIReportsThisPeriod int       `json:"ai_reports_this_period"`
	PeriodStart         time.Time `json:"period_start"`
	PeriodEnd           time.Time `json:"period_end"`
}

// Subscription is the firm's commercial plan and billing state.
type Subscription struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID             uuid.UUID                    `gorm:"type:uuid;uniqueIndex;not null" json:"firm_id"`
	Plan               constants.SubscriptionPlan   `gorm:"size:32;not null" json:"plan"`
	Status             constants.SubscriptionStatus `gorm:"size:32;not null" json:"status"`
	SeatLimit          int                          `gorm:"not null" json:"seat_limit"`
	EngagementLimit    int                          `gorm:"not null" json:"engagement_limit"`
	AIReportsPerMonth  int                          `gorm:"not null" json:"ai_reports_per_month"`
	CurrentPeriodStart time.Time                    `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time                    `gorm:"not null" json:"current_period_end"`
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
}

// NewTrialSubscription starts a starter-plan trial for a new firm.
func NewTrialSubscription(firmID uuid.UUID, now time.Time) *Subscription {
	now = now.UTC()
	s := &Subscription{
		ID:                 uuid.New(),
		FirmID:             firmID,
		Status:             constants.SubscriptionTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(constants.TrialPeriod),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.ApplyPlan(constants.PlanStarter)
	return s
}

// Limits returns the limits currently attached to the subscription.
func (s *Subscription) Limits() PlanLimits {
	return PlanLimits{
		SeatLimit:         s.SeatLimit,
		EngagementLimit:   s.EngagementLimit,
		AIReportsPerMonth: s.AIReportsPerMonth,
	}
}

// ApplyPlan switches plan and resets limits to the plan defaults.
func (s *Subscription) ApplyPlan(plan constants.SubscriptionPlan) {
	l := planLimits[plan]
	s.Plan = plan
	s.SeatLimit = l.SeatLimit
	s.EngagementLimit = l.EngagementLimit
	s.AIReportsPerMonth = l.AIReportsPerMonth
}

// RollPeriod advances an active subscription's billing period until it covers now.
// It reports whether the period changed.
func (s *Subscription) RollPeriod(now time.Time) bool {
	if s.Status != constants.SubscriptionActive || now.Before(s.CurrentPeriodEnd) {
		return false
	}
	for !now.Before(s.CurrentPeriodEnd) {
		s.CurrentPeriodStart = s.CurrentPeriodEnd
		s.CurrentPeriodEnd = s.CurrentPeriodEnd.Add(constants.BillingPeriod)
	}
	return true
}

// Entitled reports whether the subscription may consume quota at now.
// Canceled subscriptions never are; past_due ones only until the period ends.
func (s *Subscription) Entitled(now time.Time) bool {
	switch s.Status {
	case constants.SubscriptionCanceled:
		return false
	case constants.SubscriptionPastDue:
		return now.Before(s.CurrentPeriodEnd)
	default:
		return true
	}
}

// CanAddSeat reports whether another seat-consuming user may be added.
func (s *Subscription) CanAddSeat(now time.Time, seatsUsed int) bool {
	return s.Entitled(now) && allows(s.SeatLimit, seatsUsed)
}

// CanOpenEngagement reports whether another engagement may become active.
func (s *Subscription) CanOpenEngagement(now time.Time, activeEngagements int) bool {
	return s.Entitled(now) && allows(s.EngagementLimit, activeEngagements)
}

// CanGenerateReport reports whether another AI report may be started this period.
func (s *Subscription) CanGenerateReport(now time.Time, reportsThisPeriod int) bool {
	return s.Entitled(now) && allows(s.AIReportsPerMonth, reportsThisPeriod)
}

//Personal.AI order the ending
