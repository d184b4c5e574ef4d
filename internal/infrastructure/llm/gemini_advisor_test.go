package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

type reply struct {
	text string
	err  error
}

type fakeGenerator struct {
	mu       sync.Mutex
	replies  []reply
	requests [][]*genai.Content
	configs  []*genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, contents)
	f.configs = append(f.configs, cfg)
	if len(f.replies) == 0 {
		return nil, fmt.Errorf("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(r.text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 20,
		},
	}, nil
}

func (f *fakeGenerator) promptText(call int) string {
	var sb strings.Builder
	for _, c := range f.requests[call] {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

type llmCall struct {
	operation string
	success   bool
}

type recordingMetrics struct {
	service.NoopMetrics
	calls []llmCall
}

func (m *recordingMetrics) RecordLLMCall(operation, _ string, success bool, _ time.Duration, _, _ int) {
	m.calls = append(m.calls, llmCall{operation, success})
}

func newTestAdvisor(t *testing.T, replies ...reply) (*GeminiAdvisor, *fakeGenerator, *recordingMetrics) {
	t.Helper()
	gen := &fakeGenerator{replies: replies}
	metrics := &recordingMetrics{}
	a, err := newGeminiAdvisor(gen, &config.LLMConfig{
		Model:       "gemini-test",
		Temperature: 0.1,
		Timeout:     time.Second,
		MaxRetries:  2,
	}, metrics, logger.NewNoopLogger())
	require.NoError(t, err)
	a.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return a, gen, metrics
}

func scoreOf(v float64) *float64 { return &v }

func findingInput() service.FindingInput {
	return service.FindingInput{
		ClientName: "Northwind Traders",
		Industry:   "wholesale",
		Module: service.CatalogModule{
			Key:  "finance",
			Name: "Financial Management",
			Questions: []service.Question{
				{Key: "cashflow", Text: "Cash flow is forecast monthly"},
				{Key: "budget", Text: "An annual budget is tracked"},
			},
		},
		Score:   models.ModuleScore{Key: "finance", Name: "Financial Management", Score: scoreOf(3.5), RAG: constants.RAGRed},
		Answers: map[string]int{"cashflow": 3},
	}
}

func TestGenerateFinding(t *testing.T) {
	a, gen, metrics := newTestAdvisor(t, reply{text: `{"title":" Weak cash control ","summary":"No forecasting.","root_causes":["no owner"," ",""]}`})

	f, usage, err := a.GenerateFinding(context.Background(), findingInput())
	require.NoError(t, err)

	assert.Equal(t, "finance", f.ModuleKey)
	assert.Equal(t, constants.RAGRed, f.RAG)
	assert.Equal(t, models.FindingGap, f.Kind)
	assert.Equal(t, "Weak cash control", f.Title)
	assert.Equal(t, []string{"no owner"}, f.RootCauses)
	assert.Equal(t, service.Usage{Model: "gemini-test", PromptTokens: 100, CompletionTokens: 20}, usage)
	assert.Equal(t, []llmCall{{promptFinding, true}}, metrics.calls)

	prompt := gen.promptText(0)
	assert.Contains(t, prompt, "Financial Management (finance)")
	assert.Contains(t, prompt, "3.50 out of 10, classified red")
	assert.Contains(t, prompt, "Cash flow is forecast monthly: 3")
	assert.Contains(t, prompt, "An annual budget is tracked: not answered")

	cfg := gen.configs[0]
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0.1), *cfg.Temperature)
}

func TestGenerateFinding_RetriesMalformedReply(t *testing.T) {
	a, _, metrics := newTestAdvisor(t,
		reply{text: "I think the finance module is weak."},
		reply{err: fmt.Errorf("503 unavailable")},
		reply{text: "```json\n{\"title\":\"Weak cash control\",\"summary\":\"No forecasting.\"}\n```"},
	)

	f, usage, err := a.GenerateFinding(context.Background(), findingInput())
	require.NoError(t, err)
	assert.Equal(t, "Weak cash control", f.Title)
	assert.Equal(t, 200, usage.PromptTokens)
	assert.Equal(t, []llmCall{{promptFinding, false}, {promptFinding, false}, {promptFinding, true}}, metrics.calls)
}

func TestGenerateFinding_GivesUpAfterRetries(t *testing.T) {
	a, gen, _ := newTestAdvisor(t,
		reply{text: `{"title":""}`},
		reply{text: `{"title":""}`},
		reply{text: `{"title":""}`},
		reply{text: `{"title":"never used","summary":"x"}`},
	)

	_, _, err := a.GenerateFinding(context.Background(), findingInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUpstream))
	assert.Len(t, gen.requests, 3)
}

func TestGenerateFinding_CanceledContextIsNotRetried(t *testing.T) {
	a, gen, _ := newTestAdvisor(t, reply{err: context.Canceled}, reply{text: `{}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := a.GenerateFinding(ctx, findingInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUpstream))
	assert.Len(t, gen.requests, 1)
}

func reportInput() service.ReportInput {
	return service.ReportInput{
		ClientName: "Northwind Traders",
		Industry:   "wholesale",
		Scorecard: &models.Scorecard{
			OverallScore: scoreOf(5.2),
			OverallRAG:   constants.RAGAmber,
		},
		Findings: []models.Finding{{ModuleKey: "finance", Title: "Weak cash control"}},
	}
}

func TestGenerateRecommendations_DefaultsUnknownPriority(t *testing.T) {
	a, gen, _ := newTestAdvisor(t, reply{text: `{"recommendations":[
		{"module_key":"finance","title":"Introduce a 13-week cash forecast","description":"d","priority":"urgent"},
		{"module_key":"finance","title":"Monthly budget review","description":"d","priority":"low"}]}`})

	recs, _, err := a.GenerateRecommendations(context.Background(), reportInput())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, constants.PriorityMedium, recs[0].Priority)
	assert.Equal(t, constants.PriorityLow, recs[1].Priority)
	assert.Contains(t, gen.promptText(0), "Weak cash control")
	assert.Contains(t, gen.promptText(0), "5.20 (amber)")
}

func TestGenerateRoadmapAndSummary(t *testing.T) {
	a, _, _ := newTestAdvisor(t,
		reply{text: `{"phases":[{"name":"Stabilise","horizon":"0-90 days","actions":["Cash forecast"," "]}]}`},
		reply{text: `{"summary":"  Northwind is sound but cash-constrained. "}`},
	)

	phases, _, err := a.GenerateRoadmap(context.Background(), reportInput())
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, []string{"Cash forecast"}, phases[0].Actions)

	summary, _, err := a.GenerateSummary(context.Background(), reportInput())
	require.NoError(t, err)
	assert.Equal(t, "Northwind is sound but cash-constrained.", summary)
}

func TestExtractWorkbook_SendsInlineParts(t *testing.T) {
	a, gen, _ := newTestAdvisor(t, reply{text: `{"vision":"Be the regional leader",
		"objectives":[{"key":"O1","title":"Grow revenue"}],
		"initiatives":[{"key":"I1","objective_key":"O1","title":"Open second site","owner":"Ana","effort_hours":120}],
		"owners":[{"name":"Ana","capacity_hours":200}]}`})

	docs := []service.Attachment{
		{Name: "plan.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.7")},
		{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("notes")},
	}
	wb, _, err := a.ExtractWorkbook(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, "Be the regional leader", wb.Vision)
	require.Len(t, wb.Initiatives, 1)
	assert.Equal(t, 120.0, wb.Initiatives[0].EffortHours)

	parts := gen.requests[0][0].Parts
	require.Len(t, parts, 3)
	assert.Contains(t, parts[0].Text, "plan.pdf (application/pdf)")
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "application/pdf", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("notes"), parts[2].InlineData.Data)
}

func TestExtractWorkbook_RequiresDocuments(t *testing.T) {
	a, _, _ := newTestAdvisor(t)
	_, _, err := a.ExtractWorkbook(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

func TestLoadPrompts_MissingTemplate(t *testing.T) {
	_, err := loadPrompts([]byte("system: hi\nfinding: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recommendations")
}

func TestUnavailable(t *testing.T) {
	var m service.AdvisorModel = Unavailable{}
	_, _, err := m.GenerateFinding(context.Background(), service.FindingInput{})
	assert.True(t, errors.HasCode(err, errors.CodeServiceUnavailable))
	_, _, err = m.ExtractWorkbook(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.CodeServiceUnavailable))
}

//Personal.AI order the ending
