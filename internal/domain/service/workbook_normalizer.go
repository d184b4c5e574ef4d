package service

import (
	"fmt"
	"strings"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// NormalizeWorkbook cleans model output in place and returns human-readable warnings
// for every dropped or rewritten item.
//
// Objectives with a repeated key are dropped (initiatives keep pointing at the first);
// initiatives with a repeated key are renamed with a numeric suffix; initiatives whose
// objective does not exist are dropped. Unknown status and priority values fall back to
// not_started and medium.
func NormalizeWorkbook(x *ExtractedWorkbook) []string {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	x.Vision = strings.TrimSpace(x.Vision)
	x.Mission = strings.TrimSpace(x.Mission)
	x.SWOT = models.SWOT{
		Strengths:     cleanList(x.SWOT.Strengths),
		Weaknesses:    cleanList(x.SWOT.Weaknesses),
		Opportunities: cleanList(x.SWOT.Opportunities),
		Threats:       cleanList(x.SWOT.Threats),
	}

	objectives := make([]models.Objective, 0, len(x.Objectives))
	objectiveKeys := make(map[string]bool, len(x.Objectives))
	for i, o := range x.Objectives {
		o.Key = strings.TrimSpace(o.Key)
		o.Title = strings.TrimSpace(o.Title)
		o.Metric = strings.TrimSpace(o.Metric)
		o.Target = strings.TrimSpace(o.Target)
		if o.Key == "" {
			o.Key = fmt.Sprintf("OBJ-%d", i+1)
		}
		if objectiveKeys[o.Key] {
			warn("objective %q appears more than once; kept the first", o.Key)
			continue
		}
		objectiveKeys[o.Key] = true
		o.RAG = normalizeRAG(o.RAG)
		objectives = append(objectives, o)
	}
	x.Objectives = objectives

	initiatives := make([]models.Initiative, 0, len(x.Initiatives))
	initiativeKeys := make(map[string]bool, len(x.Initiatives))
	for i, in := range x.Initiatives {
		in.Key = strings.TrimSpace(in.Key)
		in.ObjectiveKey = strings.TrimSpace(in.ObjectiveKey)
		in.Title = strings.TrimSpace(in.Title)
		in.Owner = strings.TrimSpace(in.Owner)
		in.Quarter = strings.ToUpper(strings.TrimSpace(in.Quarter))
		if in.Key == "" {
			in.Key = fmt.Sprintf("INI-%d", i+1)
		}
		if !objectiveKeys[in.ObjectiveKey] {
			warn("initiative %q references unknown objective %q; dropped", in.Key, in.ObjectiveKey)
			continue
		}
		if initiativeKeys[in.Key] {
			renamed := uniqueKey(in.Key, initiativeKeys)
			warn("initiative key %q repeated; renamed to %q", in.Key, renamed)
			in.Key = renamed
		}
		initiativeKeys[in.Key] = true

		status := constants.InitiativeStatus(normalizeEnum(string(in.Status)))
		if !models.IsValidInitiativeStatus(status) {
			status = constants.InitiativeNotStarted
		}
		in.Status = status
		priority := constants.Priority(normalizeEnum(string(in.Priority)))
		if !models.IsValidPriority(priority) {
			priority = constants.PriorityMedium
		}
		in.Priority = priority
		if in.EffortHours < 0 {
			in.EffortHours = 0
		}
		in.PercentComplete = clampInt(in.PercentComplete, 0, 100)
		initiatives = append(initiatives, in)
	}
	x.Initiatives = initiatives

	owners := make([]models.Owner, 0, len(x.Owners))
	ownerNames := make(map[string]bool, len(x.Owners))
	for _, o := range x.Owners {
		o.Name = strings.TrimSpace(o.Name)
		if o.Name == "" {
			continue
		}
		if ownerNames[ownerKey(o.Name)] {
			warn("owner %q listed more than once; kept the first", o.Name)
			continue
		}
		ownerNames[ownerKey(o.Name)] = true
		if o.CapacityHours < 0 {
			o.CapacityHours = 0
		}
		owners = append(owners, o)
	}
	x.Owners = owners

	return warnings
}

// ApplyTo copies normalised content onto a workbook.
func (x *ExtractedWorkbook) ApplyTo(wb *models.StrategyWorkbook) {
	wb.Vision = x.Vision
	wb.Mission = x.Mission
	wb.SWOT = x.SWOT
	wb.Objectives = x.Objectives
	wb.Initiatives = x.Initiatives
	wb.Owners = x.Owners
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func normalizeRAG(r constants.RAGStatus) constants.RAGStatus {
	switch v := constants.RAGStatus(normalizeEnum(string(r))); v {
	case constants.RAGRed, constants.RAGAmber, constants.RAGGreen:
		return v
	}
	return constants.RAGUnscored
}

func uniqueKey(key string, taken map[string]bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", key, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateWorkbookContent checks advisor edits strictly, reporting every problem
// instead of repairing it.
func ValidateWorkbookContent(objectives []models.Objective, initiatives []models.Initiative, owners []models.Owner) error {
	details := make(map[string]string)
	objKeys := make(map[string]bool, len(objectives))
	for i, o := range objectives {
		field := fmt.Sprintf("objectives[%d]", i)
		switch {
		case strings.TrimSpace(o.Key) == "":
			details[field+".key"] = "is required"
		case objKeys[o.Key]:
			details[field+".key"] = "is duplicated"
		}
		objKeys[o.Key] = true
		if strings.TrimSpace(o.Title) == "" {
			details[field+".title"] = "is required"
		}
		if o.RAG != "" && normalizeRAG(o.RAG) != o.RAG {
			details[field+".rag"] = "must be one of: red amber green unscored"
		}
	}
	iniKeys := make(map[string]bool, len(initiatives))
	for i, in := range initiatives {
		field := fmt.Sprintf("initiatives[%d]", i)
		switch {
		case strings.TrimSpace(in.Key) == "":
			details[field+".key"] = "is required"
		case iniKeys[in.Key]:
			details[field+".key"] = "is duplicated"
		}
		iniKeys[in.Key] = true
		if !objKeys[in.ObjectiveKey] {
			details[field+".objective_key"] = "references an unknown objective"
		}
		if !models.IsValidInitiativeStatus(in.Status) {
			details[field+".status"] = "must be one of: not_started in_progress blocked done"
		}
		if !models.IsValidPriority(in.Priority) {
			details[field+".priority"] = "must be one of: high medium low"
		}
		if in.EffortHours < 0 {
			details[field+".effort_hours"] = "must be greater than or equal to 0"
		}
		if in.PercentComplete < 0 || in.PercentComplete > 100 {
			details[field+".percent_complete"] = "must be between 0 and 100"
		}
	}
	names := make(map[string]bool, len(owners))
	for i, o := range owners {
		field := fmt.Sprintf("owners[%d]", i)
		switch {
		case strings.TrimSpace(o.Name) == "":
			details[field+".name"] = "is required"
		case names[ownerKey(o.Name)]:
			details[field+".name"] = "is duplicated"
		}
		names[ownerKey(o.Name)] = true
		if o.CapacityHours < 0 {
			details[field+".capacity_hours"] = "must be greater than or equal to 0"
		}
	}
	if len(details) > 0 {
		return errors.ErrValidation(details)
	}
	return nil
}
