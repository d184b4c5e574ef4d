package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// SWOT holds the four strategic analysis lists.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Objective is a measurable strategic objective.
type Objective struct {
	Key    string              `json:"key"`
	Title  string              `json:"title"`
	Metric string              `json:"metric"`
	Target string              `json:"target"`
	RAG    constants.RAGStatus `json:"rag"`
}

// Initiative is a piece of work delivering an objective.
type Initiative struct {
	Key             string                     `json:"key"`
	ObjectiveKey    string                     `json:"objective_key"`
	Title           string                     `json:"title"`
	Owner           string                     `json:"owner"`
	Status          constants.InitiativeStatus `json:"status"`
	Priority        constants.Priority         `json:"priority"`
	EffortHours     float64                    `json:"effort_hours"`
	Quarter         string                     `json:"quarter"`
	PercentComplete int                        `json:"percent_complete"`
}

// Owner is a person accountable for initiatives, with their available hours.
type Owner struct {
	Name          string  `json:"name"`
	CapacityHours float64 `json:"capacity_hours"`
}

// StrategyWorkbook is the structured strategy extracted from an engagement's documents.
type StrategyWorkbook struct {
	ID                uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID            uuid.UUID                `gorm:"type:uuid;index;not null" json:"firm_id"`
	EngagementID      uuid.UUID                `gorm:"type:uuid;index;not null" json:"engagement_id"`
	Status            constants.WorkbookStatus `gorm:"size:32;not null" json:"status"`
	SourceDocumentIDs []uuid.UUID              `gorm:"type:text;serializer:json" json:"source_document_ids"`
	Vision            string                   `gorm:"type:text" json:"vision"`
	Mission           string                   `gorm:"type:text" json:"mission"`
	SWOT              SWOT                     `gorm:"column:swot;type:text;serializer:json" json:"swot"`
	Objectives        []Objective              `gorm:"type:text;serializer:json" json:"objectives"`
	Initiatives       []Initiative             `gorm:"type:text;serializer:json" json:"initiatives"`
	Owners            []Owner                  `gorm:"type:text;serializer:json" json:"owners"`
	Warnings          []string                 `gorm:"type:text;serializer:json" json:"warnings,omitempty"`
	ModelName         string                   `gorm:"size:100" json:"model_name,omitempty"`
	ExtractedAt       *time.Time               `json:"extracted_at,omitempty"`
	LastError         string                   `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// NewStrategyWorkbook creates a pending workbook for an engagement.
func NewStrategyWorkbook(firmID, engagementID uuid.UUID, documentIDs []uuid.UUID) *StrategyWorkbook {
	now := time.Now().UTC()
	return &StrategyWorkbook{
		ID:                uuid.New(),
		FirmID:            firmID,
		EngagementID:      engagementID,
		Status:            constants.WorkbookPending,
		SourceDocumentIDs: documentIDs,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsValidInitiativeStatus reports whether s is a known initiative status.
func IsValidInitiativeStatus(s constants.InitiativeStatus) bool {
	for _, v := range constants.InitiativeStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p constants.Priority) bool {
	for _, v := range constants.Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// CapacityWarning flags an owner whose open workload is at or over their capacity.
type CapacityWarning struct {
	Kind           constants.CapacityWarningKind `json:"kind"`
	Owner          string                        `json:"owner"`
	CommittedHours float64                       `json:"committed_hours"`
	CapacityHours  float64                       `json:"capacity_hours"`
	Utilisation    float64                       `json:"utilisation"`
	Initiatives    []string                      `json:"initiatives,omitempty"`
}

// OwnerLoad is the computed workload of one owner.
type OwnerLoad struct {
	Owner          string  `json:"owner"`
	CapacityHours  float64 `json:"capacity_hours"`
	CommittedHours float64 `json:"committed_hours"`
	Utilisation    float64 `json:"utilisation"`
}

//Personal.AI order the ending
