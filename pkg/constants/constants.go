// Package constants defines system-wide constants for the AdvisorHub service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Identity Constants
// ================================================================================

// Role represents the authorization role of a user
type Role string

const (
	// RolePlatformAdmin operates the platform itself and belongs to no firm
	RolePlatformAdmin Role = "platform_admin"

	// RoleFirmAdmin manages a firm, its subscription and its users
	RoleFirmAdmin Role = "firm_admin"

	// RoleAdvisor runs engagements for the firm's clients
	RoleAdvisor Role = "advisor"

	// RoleClientViewer has read-only access to the firm's engagements
	RoleClientViewer Role = "client_viewer"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RolePlatformAdmin, RoleFirmAdmin, RoleAdvisor, RoleClientViewer:
		return true
	}
	return false
}

// ConsumesSeat reports whether users with this role count against the subscription seat limit.
func (r Role) ConsumesSeat() bool {
	return r == RoleFirmAdmin || r == RoleAdvisor
}

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens (1 hour)
	AccessTokenDefaultTTL = 1 * time.Hour

	// PasswordMinLength is the minimum accepted password length
	PasswordMinLength = 10

	// TemporaryPasswordLength is the length of generated invitation passwords
	TemporaryPasswordLength = 16
)

// ================================================================================
// Firm & Subscription Constants
// ================================================================================

// FirmStatus represents the lifecycle status of a firm (tenant)
type FirmStatus string

const (
	FirmStatusActive    FirmStatus = "active"
	FirmStatusSuspended FirmStatus = "suspended"
)

// SubscriptionPlan represents a commercial plan
type SubscriptionPlan string

const (
	PlanStarter      SubscriptionPlan = "starter"
	PlanProfessional SubscriptionPlan = "professional"
	PlanEnterprise   SubscriptionPlan = "enterprise"
)

// SubscriptionStatus represents the billing status of a subscription
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

const (
	// TrialPeriod is the length of the trial granted on registration
	TrialPeriod = 14 * 24 * time.Hour

	// BillingPeriod is the length of a paid subscription period
	BillingPeriod = 30 * 24 * time.Hour

	// Unlimited marks a plan limit that is not enforced
	Unlimited = 0
)

// ================================================================================
// Engagement Constants
// ================================================================================

// EngagementType identifies which workflow an engagement runs
type EngagementType string

const (
	EngagementTypeBBA              EngagementType = "bba"
	EngagementTypeStrategyWorkbook EngagementType = "strategy_workbook"
	EngagementTypeGeneral          EngagementType = "general"
)

// EngagementStatus represents the lifecycle status of an engagement
type EngagementStatus string

const (
	EngagementDraft     EngagementStatus = "draft"
	EngagementActive    EngagementStatus = "active"
	EngagementCompleted EngagementStatus = "completed"
	EngagementArchived  EngagementStatus = "archived"
)

// ================================================================================
// BBA Report Constants
// ================================================================================

// ReportStatus represents the overall state of a BBA report
type ReportStatus string

const (
	ReportInProgress ReportStatus = "in_progress"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// BBAStep identifies one stage of the BBA pipeline
type BBAStep string

const (
	StepQuestionnaire   BBAStep = "questionnaire"
	StepScoring         BBAStep = "scoring"
	StepFindings        BBAStep = "findings"
	StepRecommendations BBAStep = "recommendations"
	StepRoadmap         BBAStep = "roadmap"
	StepSummary         BBAStep = "summary"
	StepDone            BBAStep = "done"
)

// BBASteps is the strict execution order of the pipeline.
var BBASteps = []BBAStep{
	StepQuestionnaire,
	StepScoring,
	StepFindings,
	StepRecommendations,
	StepRoadmap,
	StepSummary,
}

// RAGStatus is the Red/Amber/Green classification of a score
type RAGStatus string

const (
	RAGRed      RAGStatus = "red"
	RAGAmber    RAGStatus = "amber"
	RAGGreen    RAGStatus = "green"
	RAGUnscored RAGStatus = "unscored"
)

const (
	// DefaultRedBelow is the score below which a module is classified red
	DefaultRedBelow = 4.0

	// DefaultAmberBelow is the score below which a module is classified amber
	DefaultAmberBelow = 7.0

	// MinAnswerScore and MaxAnswerScore bound every questionnaire answer
	MinAnswerScore = 0
	MaxAnswerScore = 10
)

// ================================================================================
// Strategy Workbook Constants
// ================================================================================

// WorkbookStatus represents the extraction state of a strategy workbook
type WorkbookStatus string

const (
	WorkbookPending   WorkbookStatus = "pending"
	WorkbookExtracted WorkbookStatus = "extracted"
	WorkbookFailed    WorkbookStatus = "failed"
)

// InitiativeStatus is the delivery status of a workbook initiative
type InitiativeStatus string

const (
	InitiativeNotStarted InitiativeStatus = "not_started"
	InitiativeInProgress InitiativeStatus = "in_progress"
	InitiativeBlocked    InitiativeStatus = "blocked"
	InitiativeDone       InitiativeStatus = "done"
)

// InitiativeStatuses lists the statuses offered in exported drop-downs.
var InitiativeStatuses = []InitiativeStatus{InitiativeNotStarted, InitiativeInProgress, InitiativeBlocked, InitiativeDone}

// Priority is the priority of a workbook initiative
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the priorities offered in exported drop-downs.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// CapacityWarningKind classifies an owner workload warning
type CapacityWarningKind string

const (
	CapacityOver         CapacityWarningKind = "over_capacity"
	CapacityNoCapacity   CapacityWarningKind = "no_capacity"
	CapacityUnknownOwner CapacityWarningKind = "unknown_owner"
	CapacityNear         CapacityWarningKind = "near_capacity"
)

// DefaultCapacityWarnRatio is the utilisation at which an owner is flagged near capacity
const DefaultCapacityWarnRatio = 0.85

// ================================================================================
// Document Constants
// ================================================================================

// DefaultMaxUploadBytes is the default upload size limit (20 MiB)
const DefaultMaxUploadBytes int64 = 20 << 20

// AllowedContentTypes maps accepted file extensions to their canonical MIME type.
var AllowedContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// XLSXContentType is the MIME type of generated exports
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ================================================================================
// Audit Constants
// ================================================================================

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	AuditUserRegistered       AuditEventType = "user.registered"
	AuditUserLoggedIn         AuditEventType = "user.logged_in"
	AuditUserInvited          AuditEventType = "user.invited"
	AuditUserDeactivated      AuditEventType = "user.deactivated"
	AuditFirmUpdated          AuditEventType = "firm.updated"
	AuditFirmStatusChanged    AuditEventType = "firm.status_changed"
	AuditPlanChanged          AuditEventType = "subscription.plan_changed"
	AuditEngagementCreated    AuditEventType = "engagement.created"
	AuditEngagementTransition AuditEventType = "engagement.status_changed"
	AuditDocumentUploaded     AuditEventType = "document.uploaded"
	AuditDocumentDeleted      AuditEventType = "document.deleted"
	AuditReportStarted        AuditEventType = "bba.report.started"
	AuditReportStepCompleted  AuditEventType = "bba.report.step_completed"
	AuditReportCompleted      AuditEventType = "bba.report.completed"
	AuditWorkbookExtracted    AuditEventType = "workbook.extracted"
	AuditExportGenerated      AuditEventType = "export.generated"
)

// ================================================================================
// Pagination Constants
// ================================================================================

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyFirmID is the key for the authenticated firm ID in context
	ContextKeyFirmID ContextKey = "firm_id"

	// ContextKeyUserID is the key for the authenticated user ID in context
	ContextKeyUserID ContextKey = "user_id"

	// ContextKeyPrincipal is the key for the authenticated principal in context
	ContextKeyPrincipal ContextKey = "principal"

	// ContextKeyClientIP is the key for client IP address in context
	ContextKeyClientIP ContextKey = "client_ip"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	HeaderRequestID          = "X-Request-ID"
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// ================================================================================
// Cache Constants
// ================================================================================

const (
	// SubscriptionCacheTTL is the Redis lifetime of a cached subscription
	SubscriptionCacheTTL = 10 * time.Minute

	// SubscriptionLocalCacheTTL is the in-process lifetime of a cached subscription
	SubscriptionLocalCacheTTL = 30 * time.Second

	// ReportLockTTL bounds how long a BBA step may hold its report lock
	ReportLockTTL = 5 * time.Minute
)

//Personal.AI order the ending
