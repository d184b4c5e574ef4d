package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// Scorer turns questionnaire answers into a ranked, RAG-classified scorecard.
type Scorer struct {
	catalog    *Catalog
	redBelow   float64
	amberBelow float64
}

// NewScorer creates a scorer. redBelow must be lower than amberBelow.
func NewScorer(catalog *Catalog, redBelow, amberBelow float64) (*Scorer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("scorer: catalog is required")
	}
	if redBelow >= amberBelow {
		return nil, fmt.Errorf("scorer: red threshold %.2f must be below amber threshold %.2f", redBelow, amberBelow)
	}
	return &Scorer{catalog: catalog, redBelow: redBelow, amberBelow: amberBelow}, nil
}

// Catalog returns the catalog the scorer validates against.
func (s *Scorer) Catalog() *Catalog {
	return s.catalog
}

// Classify maps a score to its RAG status.
func (s *Scorer) Classify(score float64) constants.RAGStatus {
	switch {
	case score < s.redBelow:
		return constants.RAGRed
	case score < s.amberBelow:
		return constants.RAGAmber
	default:
		return constants.RAGGreen
	}
}

// Validate checks every answer against the catalog. The returned error names each offending key.
func (s *Scorer) Validate(answers models.Answers) error {
	details := make(map[string]string)
	for moduleKey, qs := range answers {
		m, ok := s.catalog.Module(moduleKey)
		if !ok {
			details[moduleKey] = "unknown module"
			continue
		}
		for qKey, v := range qs {
			field := moduleKey + "." + qKey
			if !m.HasQuestion(qKey) {
				details[field] = "unknown question"
				continue
			}
			if v < constants.MinAnswerScore || v > constants.MaxAnswerScore {
				details[field] = fmt.Sprintf("must be between %d and %d", constants.MinAnswerScore, constants.MaxAnswerScore)
			}
		}
	}
	if len(details) > 0 {
		return errors.ErrValidation(details)
	}
	return nil
}

// Score computes the scorecard for answers. Answers must have passed Validate.
func (s *Scorer) Score(answers models.Answers) *models.Scorecard {
	scored := make([]models.ModuleScore, 0, len(s.catalog.Modules))
	var unscored []models.ModuleScore

	for _, m := range s.catalog.Modules {
		ms := models.ModuleScore{
			Key:       m.Key,
			Name:      m.Name,
			Weight:    m.Weight,
			Questions: len(m.Questions),
		}
		sum, n := 0, 0
		for _, q := range m.Questions {
			if v, ok := answers[m.Key][q.Key]; ok {
				sum += v
				n++
			}
		}
		ms.Answered = n
		if n == 0 {
			ms.RAG = constants.RAGUnscored
			unscored = append(unscored, ms)
			continue
		}
		score := meanRounded(sum, n)
		ms.Score = &score
		ms.RAG = s.Classify(score)
		scored = append(scored, ms)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if *a.Score != *b.Score {
			return *a.Score < *b.Score
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Key < b.Key
	})
	for i := range scored {
		scored[i].Rank = i + 1
	}

	card := &models.Scorecard{
		Modules:    append(scored, unscored...),
		OverallRAG: constants.RAGUnscored,
		RedBelow:   s.redBelow,
		AmberBelow: s.amberBelow,
	}
	if len(scored) > 0 {
		var weighted, weights float64
		for _, m := range scored {
			weighted += *m.Score * m.Weight
			weights += m.Weight
		}
		overall := Round2(weighted / weights)
		card.OverallScore = &overall
		card.OverallRAG = s.Classify(overall)
	}
	return card
}

// meanRounded returns sum/n rounded half away from zero to two decimals.
// Answers are non-negative integers so the rounding is done exactly in integers.
func meanRounded(sum, n int) float64 {
	cents := (200*sum + n) / (2 * n)
	return float64(cents) / 100
}

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	const eps = 1e-9
	if v < 0 {
		return -math.Round(-v*100+eps) / 100
	}
	return math.Round(v*100+eps) / 100
}

//Personal.AI order the ending
