package llm

import (
	"context"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// Unavailable stands in for the model when no API key is configured.
// Every call fails with service_unavailable so scoring and manual editing keep working.
type Unavailable struct{}

func notConfigured() error {
	return errors.ErrServiceUnavailable("AI features are not configured")
}

func (Unavailable) GenerateFinding(context.Context, service.FindingInput) (*models.Finding, service.Usage, error) {
	return nil, service.Usage{}, notConfigured()
}

func (Unavailable) GenerateRecommendations(context.Context, service.ReportInput) ([]models.Recommendation, service.Usage, error) {
	return nil, service.Usage{}, notConfigured()
}

func (Unavailable) GenerateRoadmap(context.Context, service.ReportInput) ([]models.RoadmapPhase, service.Usage, error) {
	return nil, service.Usage{}, notConfigured()
}

func (Unavailable) GenerateSummary(context.Context, service.ReportInput) (string, service.Usage, error) {
	return "", service.Usage{}, notConfigured()
}

func (Unavailable) ExtractWorkbook(context.Context, []service.Attachment) (*service.ExtractedWorkbook, service.Usage, error) {
	return nil, service.Usage{}, notConfigured()
}

var _ service.AdvisorModel = Unavailable{}

//Personal.AI order the ending
