package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

const testCatalogYAML = `
version: test
modules:
  - key: finance
    name: Finance
    weight: 2
    questions:
      - {key: f1, text: one}
      - {key: f2, text: two}
      - {key: f3, text: three}
  - key: sales
    name: Sales
    weight: 1
    questions:
      - {key: s1, text: one}
      - {key: s2, text: two}
  - key: ops
    name: Operations
    weight: 2
    questions:
      - {key: o1, text: one}
  - key: people
    name: People
    weight: 1
    questions:
      - {key: p1, text: one}
`

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	catalog, err := ParseCatalog([]byte(testCatalogYAML))
	require.NoError(t, err)
	s, err := NewScorer(catalog, constants.DefaultRedBelow, constants.DefaultAmberBelow)
	require.NoError(t, err)
	return s
}

func TestScorer_ScoreRanksAndClassifies(t *testing.T) {
	s := newTestScorer(t)

	card := s.Score(models.Answers{
		"finance": {"f1": 3, "f2": 4, "f3": 4}, // 3.666.. -> 3.67 red
		"sales":   {"s1": 5},                   // 5.00 amber, f2 unanswered
		"ops":     {"o1": 5},                   // 5.00 amber, heavier than sales
	})

	require.Len(t, card.Modules, 4)
	keys := []string{}
	for _, m := range card.Modules {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"finance", "ops", "sales", "people"}, keys)

	fin := card.Modules[0]
	assert.Equal(t, 3.67, *fin.Score)
	assert.Equal(t, constants.RAGRed, fin.RAG)
	assert.Equal(t, 1, fin.Rank)
	assert.Equal(t, 3, fin.Answered)

	assert.Equal(t, 2, card.Modules[1].Rank)
	assert.Equal(t, constants.RAGAmber, card.Modules[1].RAG)
	assert.Equal(t, 3, card.Modules[2].Rank)
	assert.Equal(t, 1, card.Modules[2].Answered)
	assert.Equal(t, 2, card.Modules[2].Questions)

	people := card.Modules[3]
	assert.Nil(t, people.Score)
	assert.Equal(t, 0, people.Rank)
	assert.Equal(t, constants.RAGUnscored, people.RAG)

	// (3.67*2 + 5*1 + 5*2) / 5 = 4.468 -> 4.47
	require.NotNil(t, card.OverallScore)
	assert.Equal(t, 4.47, *card.OverallScore)
	assert.Equal(t, constants.RAGAmber, card.OverallRAG)
}

func TestScorer_TieBreakByKeyWhenWeightsEqual(t *testing.T) {
	s := newTestScorer(t)
	card := s.Score(models.Answers{"people": {"p1": 8}, "sales": {"s1": 8, "s2": 8}})
	assert.Equal(t, "people", card.Modules[0].Key)
	assert.Equal(t, "sales", card.Modules[1].Key)
	assert.Equal(t, constants.RAGGreen, card.Modules[0].RAG)
}

func TestScorer_NoAnswersIsUnscored(t *testing.T) {
	card := newTestScorer(t).Score(models.Answers{})
	assert.Nil(t, card.OverallScore)
	assert.Equal(t, constants.RAGUnscored, card.OverallRAG)
	for _, m := range card.Modules {
		assert.Equal(t, 0, m.Rank)
	}
}

func TestScorer_ClassifyBoundaries(t *testing.T) {
	s := newTestScorer(t)
	assert.Equal(t, constants.RAGRed, s.Classify(3.99))
	assert.Equal(t, constants.RAGAmber, s.Classify(4.0))
	assert.Equal(t, constants.RAGAmber, s.Classify(6.99))
	assert.Equal(t, constants.RAGGreen, s.Classify(7.0))
}

func TestScorer_ValidateReportsEveryKey(t *testing.T) {
	err := newTestScorer(t).Validate(models.Answers{
		"finance": {"f1": 11, "bogus": 3, "f2": -1},
		"legal":   {"l1": 5},
	})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidRequest, appErr.Code())
	md := appErr.Metadata()
	assert.Contains(t, md, "finance.f1")
	assert.Contains(t, md, "finance.f2")
	assert.Contains(t, md, "finance.bogus")
	assert.Contains(t, md, "legal")
}

func TestMeanRounded_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 3.67, meanRounded(11, 3))
	assert.Equal(t, 3.33, meanRounded(10, 3))
	assert.Equal(t, 0.13, meanRounded(1, 8)) // 0.125
	assert.Equal(t, 10.0, meanRounded(10, 1))
	assert.Equal(t, 2.35, Round2(2.345))
}

func TestParseCatalog_Rejects(t *testing.T) {
	_, err := ParseCatalog([]byte("modules:\n  - {key: a, name: A, weight: 0, questions: [{key: q}]}\n"))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte("modules:\n  - {key: a, name: A, weight: 1, questions: [{key: q}, {key: q}]}\n"))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte("modules: []\n"))
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.NotEmpty(t, c.Modules)
	_, ok := c.Module("finance")
	assert.True(t, ok)
}

func TestNewScorer_RejectsInvertedThresholds(t *testing.T) {
	_, err := NewScorer(DefaultCatalog(), 7, 4)
	assert.Error(t, err)
}
