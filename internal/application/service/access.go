// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/domain/models"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Roles allowed to change firm data. Client viewers are read-only.
var editorRoles = []constants.Role{constants.RoleFirmAdmin, constants.RoleAdvisor}

// requireFirm returns the caller's firm. Platform admins have none and are refused tenant operations.
func requireFirm(p *models.Principal) (uuid.UUID, error) {
	if p == nil {
		return uuid.Nil, errors.ErrUnauthorized("authentication required")
	}
	if p.FirmID == nil {
		return uuid.Nil, errors.ErrForbidden("this operation requires a firm account")
	}
	return *p.FirmID, nil
}

// requireRole refuses callers holding none of roles.
func requireRole(p *models.Principal, roles ...constants.Role) error {
	if p == nil {
		return errors.ErrUnauthorized("authentication required")
	}
	if !p.HasRole(roles...) {
		return errors.ErrForbidden("insufficient role for this operation")
	}
	return nil
}

// requireFirmRole combines requireFirm and requireRole.
func requireFirmRole(p *models.Principal, roles ...constants.Role) (uuid.UUID, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return uuid.Nil, err
	}
	if err := requireRole(p, roles...); err != nil {
		return uuid.Nil, err
	}
	return firmID, nil
}

// canSeeEngagement applies the assignment rule: advisors see only their own engagements.
func canSeeEngagement(p *models.Principal, e *models.Engagement) bool {
	if p.Role == constants.RoleAdvisor {
		return e.AdvisorID == p.UserID
	}
	return true
}

// canEditEngagement reports whether the caller may change the engagement or its artefacts.
func canEditEngagement(p *models.Principal, e *models.Engagement) bool {
	switch p.Role {
	case constants.RoleFirmAdmin:
		return true
	case constants.RoleAdvisor:
		return e.AdvisorID == p.UserID
	}
	return false
}

// parseID parses a path or body identifier.
func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidParameterFormat(name, "uuid")
	}
	return id, nil
}

// recordAudit logs an audit event; failures never reach the caller.
func recordAudit(ctx context.Context, audit domainService.AuditService, log logger.Logger, event *models.AuditEvent) {
	if audit == nil {
		return
	}
	if err := audit.LogEvent(ctx, event); err != nil {
		log.Warn(ctx, "Failed to record audit event", logger.String("event_type", string(event.Type)), logger.Err(err))
	}
}

// auditEvent starts an event attributed to the principal.
func auditEvent(p *models.Principal, eventType constants.AuditEventType, resourceType, resourceID string) *models.AuditEvent {
	e := models.NewAuditEvent(p.FirmID, eventType, resourceType, resourceID)
	if p.UserID != uuid.Nil {
		e.WithActor(p.UserID)
	}
	return e
}

// asServerError keeps AppErrors and wraps anything else.
func asServerError(err error, message string) error {
	return errors.Wrap(err, errors.CodeServerError, message)
}

//Personal.AI order the ending
