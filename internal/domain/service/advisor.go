package service

import (
	"context"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// Usage reports model token consumption for one call.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	if other.Model != "" {
		u.Model = other.Model
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// FindingInput is the context for diagnosing one weak module.
type FindingInput struct {
	ClientName string
	Industry   string
	Module     CatalogModule
	Score      models.ModuleScore
	Answers    map[string]int
}

// ReportInput is the context for the later, report-wide steps.
type ReportInput struct {
	ClientName      string
	Industry        string
	Scorecard       *models.Scorecard
	Findings        []models.Finding
	Recommendations []models.Recommendation
	Roadmap         []models.RoadmapPhase
}

// Attachment is a document handed to the model as inline bytes.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ExtractedWorkbook is the raw strategy content returned by the model, before normalisation.
type ExtractedWorkbook struct {
	Vision      string              `json:"vision"`
	Mission     string              `json:"mission"`
	SWOT        models.SWOT         `json:"swot"`
	Objectives  []models.Objective  `json:"objectives"`
	Initiatives []models.Initiative `json:"initiatives"`
	Owners      []models.Owner      `json:"owners"`
}

// AdvisorModel is the generative model behind the BBA and workbook pipelines.
// Implementations return an upstream_error AppError when the model fails or
// replies with content that does not match the expected shape.
type AdvisorModel interface {
	GenerateFinding(ctx context.Context, in FindingInput) (*models.Finding, Usage, error)
	GenerateRecommendations(ctx context.Context, in ReportInput) ([]models.Recommendation, Usage, error)
	GenerateRoadmap(ctx context.Context, in ReportInput) ([]models.RoadmapPhase, Usage, error)
	GenerateSummary(ctx context.Context, in ReportInput) (string, Usage, error)
	ExtractWorkbook(ctx context.Context, docs []Attachment) (*ExtractedWorkbook, Usage, error)
}
