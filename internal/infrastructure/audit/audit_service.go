package audit

import (
	"context"
	"time"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Service persists audit events and forwards them to the event bus.
// Service 持久化审计事件并将其转发到事件总线。
type Service struct {
	repo      repository.AuditRepository
	publisher service.EventPublisher
	signer    *Signer
	logger    logger.Logger
}

// NewService creates the audit service. publisher and signer may be nil.
func NewService(repo repository.AuditRepository, publisher service.EventPublisher, signer *Signer, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		signer:    signer,
		logger:    log.WithComponent("AuditService"),
	}
}

// LogEvent stores the event and publishes it. Only the database write can fail the call.
func (s *Service) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	if event.RequestID == "" {
		if rid, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			event.RequestID = rid
		}
	}
	event.CreatedAt = event.CreatedAt.UTC().Truncate(time.Microsecond)
	if s.signer != nil {
		sig, err := s.signer.Sign(event)
		if err != nil {
			s.logger.Error(ctx, "failed to sign audit event", err, logger.String("event_type", string(event.Type)))
		} else {
			event.Signature = sig
		}
	}

	if err := s.repo.Save(ctx, event); err != nil {
		s.logger.Error(ctx, "failed to save audit event", err, logger.String("event_type", string(event.Type)))
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn(ctx, "audit event not published", logger.String("event_type", string(event.Type)), logger.Err(err))
		}
	}
	return nil
}

var _ service.AuditService = (*Service)(nil)

//Personal.AI order the ending
