package models

import "github.com/turtacn/advisorhub/pkg/constants"

// Answers maps module key to question key to the 0..10 answer.
type Answers map[string]map[string]int

// Count returns the number of answered questions.
func (a Answers) Count() int {
	n := 0
	for _, qs := range a {
		n += len(qs)
	}
	return n
}

// ModuleScore is the scored result of one diagnostic module.
type ModuleScore struct {
	Key       string              `json:"key"`
	Name      string              `json:"name"`
	Weight    float64             `json:"weight"`
	Score     *float64            `json:"score,omitempty"`
	RAG       constants.RAGStatus `json:"rag"`
	Rank      int                 `json:"rank"`
	Answered  int                 `json:"answered"`
	Questions int                 `json:"questions"`
}

// IsScored reports whether the module had at least one answer.
func (m ModuleScore) IsScored() bool {
	return m.Score != nil
}

// Scorecard is the full scoring output: modules in rank order followed by unscored ones.
type Scorecard struct {
	Modules      []ModuleScore       `json:"modules"`
	OverallScore *float64            `json:"overall_score,omitempty"`
	OverallRAG   constants.RAGStatus `json:"overall_rag"`
	RedBelow     float64             `json:"red_below"`
	AmberBelow   float64             `json:"amber_below"`
}

// Module returns the scored module with key, if present.
func (s *Scorecard) Module(key string) (ModuleScore, bool) {
	for _, m := range s.Modules {
		if m.Key == key {
			return m, true
		}
	}
	return ModuleScore{}, false
}

// FindingKind distinguishes weaknesses from strengths.
type FindingKind string

const (
	FindingGap      FindingKind = "gap"
	FindingStrength FindingKind = "strength"
)

// Finding is the diagnosis for one module.
type Finding struct {
	ModuleKey  string              `json:"module_key"`
	ModuleName string              `json:"module_name"`
	RAG        constants.RAGStatus `json:"rag"`
	Kind       FindingKind         `json:"kind"`
	Title      string              `json:"title"`
	Summary    string              `json:"summary"`
	RootCauses []string            `json:"root_causes,omitempty"`
}

// Recommendation is a proposed action addressing one or more findings.
type Recommendation struct {
	ModuleKey   string             `json:"module_key"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    constants.Priority `json:"priority"`
	Impact      string             `json:"impact,omitempty"`
}

// RoadmapPhase groups recommendations into a time horizon.
type RoadmapPhase struct {
	Name    string   `json:"name"`
	Horizon string   `json:"horizon"`
	Actions []string `json:"actions"`
}
