package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// BBAReport is a Business Benchmark Analysis moving through the fixed step pipeline.
// CurrentStep is the last completed step; the next runnable step follows it in constants.BBASteps.
type BBAReport struct {
	ID               uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID           uuid.UUID              `gorm:"type:uuid;index;not null" json:"firm_id"`
	EngagementID     uuid.UUID              `gorm:"type:uuid;index;not null" json:"engagement_id"`
	Status           constants.ReportStatus `gorm:"size:32;not null" json:"status"`
	CurrentStep      constants.BBAStep      `gorm:"size:32" json:"current_step"`
	Responses        Answers                `gorm:"type:text;serializer:json" json:"responses,omitempty"`
	Scores           *Scorecard             `gorm:"type:text;serializer:json" json:"scores,omitempty"`
	Findings         []Finding              `gorm:"type:text;serializer:json" json:"findings,omitempty"`
	Recommendations  []Recommendation       `gorm:"type:text;serializer:json" json:"recommendations,omitempty"`
	Roadmap          []RoadmapPhase         `gorm:"type:text;serializer:json" json:"roadmap,omitempty"`
	ExecutiveSummary string                 `gorm:"type:text" json:"executive_summary,omitempty"`
	ModelName        string                 `gorm:"size:100" json:"model_name,omitempty"`
	PromptTokens     int                    `json:"prompt_tokens"`
	CompletionTokens int                    `json:"completion_tokens"`
	LastError        string                 `gorm:"type:text" json:"last_error,omitempty"`
	CreatedBy        uuid.UUID              `gorm:"type:uuid" json:"created_by"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	CreatedAt        time.Time              `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewBBAReport creates an in-progress report with no steps completed.
func NewBBAReport(firmID, engagementID, createdBy uuid.UUID) *BBAReport {
	now := time.Now().UTC()
	return &BBAReport{
		ID:           uuid.New(),
		FirmID:       firmID,
		EngagementID: engagementID,
		Status:       constants.ReportInProgress,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NextStep returns the step that must run next, or StepDone.
func (r *BBAReport) NextStep() constants.BBAStep {
	if r.CurrentStep == "" {
		return constants.StepQuestionnaire
	}
	for i, s := range constants.BBASteps {
		if s == r.CurrentStep && i+1 < len(constants.BBASteps) {
			return constants.BBASteps[i+1]
		}
	}
	return constants.StepDone
}

// AcceptsResponses reports whether answers may be (re)submitted.
func (r *BBAReport) AcceptsResponses() bool {
	if r.Status != constants.ReportInProgress {
		return false
	}
	return r.CurrentStep == "" || r.CurrentStep == constants.StepQuestionnaire || r.CurrentStep == constants.StepScoring
}

// SetResponses stores answers, completes the questionnaire step and clears every later output.
func (r *BBAReport) SetResponses(answers Answers) {
	r.Responses = answers
	r.CurrentStep = constants.StepQuestionnaire
	r.Scores = nil
	r.Findings = nil
	r.Recommendations = nil
	r.Roadmap = nil
	r.ExecutiveSummary = ""
	r.LastError = ""
}

// CompleteStep marks step as done and clears LastError. Finishing summary completes the report.
func (r *BBAReport) CompleteStep(step constants.BBAStep, now time.Time) {
	r.CurrentStep = step
	r.LastError = ""
	if step == constants.StepSummary {
		now = now.UTC()
		r.Status = constants.ReportCompleted
		r.CompletedAt = &now
	}
}

// AddUsage accumulates LLM token usage.
func (r *BBAReport) AddUsage(model string, prompt, completion int) {
	if model != "" {
		r.ModelName = model
	}
	r.PromptTokens += prompt
	r.CompletionTokens += completion
}

// IsValidBBAStep reports whether s names a pipeline step.
func IsValidBBAStep(s constants.BBAStep) bool {
	for _, step := range constants.BBASteps {
		if step == s {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
