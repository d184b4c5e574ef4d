package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// Engagement is a piece of advisory work for one client, run by one advisor.
type Engagement struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	FirmID        uuid.UUID                  `gorm:"type:uuid;index;not null" json:"firm_id"`
	ClientID      uuid.UUID                  `gorm:"type:uuid;index;not null" json:"client_id"`
	AdvisorID     uuid.UUID                  `gorm:"type:uuid;index;not null" json:"advisor_id"`
	Title         string                     `gorm:"size:200;not null" json:"title"`
	Type          constants.EngagementType   `gorm:"size:32;not null" json:"type"`
	Status        constants.EngagementStatus `gorm:"size:32;index;not null" json:"status"`
	StartDate     *time.Time                 `json:"start_date,omitempty"`
	TargetEndDate *time.Time                 `json:"target_end_date,omitempty"`
	Notes         string                     `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// engagementTransitions lists the allowed status moves.
var engagementTransitions = map[constants.EngagementStatus][]constants.EngagementStatus{
	constants.EngagementDraft:     {constants.EngagementActive, constants.EngagementArchived},
	constants.EngagementActive:    {constants.EngagementCompleted, constants.EngagementArchived},
	constants.EngagementCompleted: {constants.EngagementArchived, constants.EngagementActive},
}

// CanTransition reports whether the engagement may move from its current status to next.
func (e *Engagement) CanTransition(next constants.EngagementStatus) bool {
	for _, s := range engagementTransitions[e.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the engagement is open for work.
func (e *Engagement) IsActive() bool {
	return e.Status == constants.EngagementActive
}

// IsValidEngagementType reports whether t is a known engagement type.
func IsValidEngagementType(t constants.EngagementType) bool {
	switch t {
	case constants.EngagementTypeBBA, constants.EngagementTypeStrategyWorkbook, constants.EngagementTypeGeneral:
		return true
	}
	return false
}

// IsValidEngagementStatus reports whether s is a known engagement status.
func IsValidEngagementStatus(s constants.EngagementStatus) bool {
	switch s {
	case constants.EngagementDraft, constants.EngagementActive, constants.EngagementCompleted, constants.EngagementArchived:
		return true
	}
	return false
}

//Personal.AI order the ending
