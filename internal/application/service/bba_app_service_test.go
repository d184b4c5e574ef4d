package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

const bbaTestCatalog = `
version: test
modules:
  - key: finance
    name: Finance
    weight: 2
    questions:
      - {key: f1, text: Cash visibility}
      - {key: f2, text: Budgeting}
  - key: sales
    name: Sales
    weight: 1
    questions:
      - {key: s1, text: Pipeline}
  - key: ops
    name: Operations
    weight: 1
    questions:
      - {key: o1, text: Processes}
`

type bbaHarness struct {
	*fixture
	svc     BBAAppService
	model   *scriptedAdvisor
	locker  *memoryLocker
	firm    *models.Firm
	admin   *models.Principal
	advisor *models.Principal
	e       *models.Engagement
}

func newBBAHarness(t *testing.T) *bbaHarness {
	f := newFixture(t)
	catalog, err := domainService.ParseCatalog([]byte(bbaTestCatalog))
	require.NoError(t, err)
	scorer, err := domainService.NewScorer(catalog, 4, 7)
	require.NoError(t, err)

	h := &bbaHarness{fixture: f, model: &scriptedAdvisor{}, locker: newMemoryLocker()}
	h.svc = NewBBAAppService(f.store, f.repos, scorer, h.model, h.locker, stubExporter{}, nil, nil, f.audit, BBAOptions{MaxConcurrency: 2}, f.log)
	h.firm, h.admin = f.seedFirm(constants.PlanStarter)
	h.advisor = f.seedUser(h.firm, constants.RoleAdvisor)
	h.e = f.seedEngagement(h.firm, f.seedClient(h.firm), h.advisor, constants.EngagementTypeBBA, constants.EngagementActive)
	return h
}

func (h *bbaHarness) start(t *testing.T) *models.BBAReport {
	t.Helper()
	r, err := h.svc.Start(context.Background(), h.advisor, &dto.StartReportRequest{EngagementID: h.e.ID.String()})
	require.NoError(t, err)
	return r
}

func (h *bbaHarness) step(r *models.BBAReport, step constants.BBAStep) (*models.BBAReport, error) {
	return h.svc.RunStep(context.Background(), h.advisor, r.ID.String(), &dto.RunStepRequest{Step: step})
}

var bbaAnswers = models.Answers{
	"finance": {"f1": 2, "f2": 3},
	"sales":   {"s1": 9},
}

func Test_BBAAppService_FullPipeline(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	assert.Equal(t, constants.ReportInProgress, r.Status)

	_, err := h.step(r, constants.StepScoring)
	assertCode(t, err, errors.CodeWorkflowViolation)

	r, err = h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)
	assert.Equal(t, constants.StepQuestionnaire, r.CurrentStep)

	// steps must run in order
	_, err = h.step(r, constants.StepFindings)
	assertCode(t, err, errors.CodeWorkflowViolation)

	r, err = h.step(r, constants.StepScoring)
	require.NoError(t, err)
	require.NotNil(t, r.Scores)
	finance, ok := r.Scores.Module("finance")
	require.True(t, ok)
	assert.Equal(t, constants.RAGRed, finance.RAG)
	ops, _ := r.Scores.Module("ops")
	assert.False(t, ops.IsScored())

	r, err = h.step(r, constants.StepFindings)
	require.NoError(t, err)
	assert.Equal(t, []string{"finance"}, h.model.findingCalls)
	require.Len(t, r.Findings, 2)
	kinds := map[string]models.FindingKind{}
	for _, finding := range r.Findings {
		kinds[finding.ModuleKey] = finding.Kind
	}
	assert.Equal(t, models.FindingGap, kinds["finance"])
	assert.Equal(t, models.FindingStrength, kinds["sales"])

	// answers are frozen once findings exist
	_, err = h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	assertCode(t, err, errors.CodeWorkflowViolation)

	for _, step := range []constants.BBAStep{constants.StepRecommendations, constants.StepRoadmap, constants.StepSummary} {
		r, err = h.step(r, step)
		require.NoError(t, err, step)
	}
	assert.Equal(t, constants.ReportCompleted, r.Status)
	assert.NotNil(t, r.CompletedAt)
	assert.Equal(t, "The business is sound.", r.ExecutiveSummary)
	assert.Len(t, r.Recommendations, 2)
	assert.Equal(t, "gemini-test", r.ModelName)
	assert.Equal(t, 4*testUsage.PromptTokens, r.PromptTokens)

	status, err := h.svc.GetStatus(ctx, h.admin, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.StepDone, status.NextStep)
	assert.Contains(t, h.audit.types(), constants.AuditReportCompleted)

	file, err := h.svc.ExportScorecard(ctx, h.admin, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "bba-scorecard-"+r.ID.String()[:8]+".xlsx", file.FileName)
	assert.Equal(t, constants.XLSXContentType, file.ContentType)

	_, err = h.step(r, constants.StepSummary)
	assertCode(t, err, errors.CodeWorkflowViolation)
}

func Test_BBAAppService_StepFailureRecordsError(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)
	_, err = h.step(r, constants.StepScoring)
	require.NoError(t, err)

	h.model.failFindings = errors.ErrUpstream("llm", "model overloaded")
	_, err = h.step(r, constants.StepFindings)
	assertCode(t, err, errors.CodeUpstream)

	stored, err := h.svc.Get(ctx, h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.StepScoring, stored.CurrentStep)
	assert.Equal(t, constants.ReportInProgress, stored.Status)
	assert.NotEmpty(t, stored.LastError)
	assert.Positive(t, stored.PromptTokens)

	// retry succeeds and clears the error
	h.model.failFindings = nil
	stored, err = h.step(r, constants.StepFindings)
	require.NoError(t, err)
	assert.Empty(t, stored.LastError)
}

func Test_BBAAppService_LockHeld(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)

	unlock, ok, err := h.locker.TryLock(ctx, "bba:report:"+r.ID.String(), constants.ReportLockTTL)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.step(r, constants.StepScoring)
	assertCode(t, err, errors.CodeConflict)

	require.NoError(t, unlock(ctx))
	_, err = h.step(r, constants.StepScoring)
	require.NoError(t, err)
}

func Test_BBAAppService_Start_Rules(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()

	sub, err := h.repos.Subscriptions.FindByFirmID(ctx, h.firm.ID)
	require.NoError(t, err)
	sub.AIReportsPerMonth = 1
	require.NoError(t, h.repos.Subscriptions.Update(ctx, sub))

	r := h.start(t)

	// one open report per engagement
	_, err = h.svc.Start(ctx, h.advisor, &dto.StartReportRequest{EngagementID: h.e.ID.String()})
	assertCode(t, err, errors.CodeConflict)

	// canceling returns the quota unit
	canceled, err := h.svc.Cancel(ctx, h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.ReportFailed, canceled.Status)
	h.start(t)

	other := h.seedEngagement(h.firm, h.seedClient(h.firm), h.advisor, constants.EngagementTypeBBA, constants.EngagementActive)
	_, err = h.svc.Start(ctx, h.advisor, &dto.StartReportRequest{EngagementID: other.ID.String()})
	assertCode(t, err, errors.CodeQuotaExceeded)

	wb := h.seedEngagement(h.firm, h.seedClient(h.firm), h.advisor, constants.EngagementTypeStrategyWorkbook, constants.EngagementActive)
	_, err = h.svc.Start(ctx, h.advisor, &dto.StartReportRequest{EngagementID: wb.ID.String()})
	assertCode(t, err, errors.CodeWorkflowViolation)

	draft := h.seedEngagement(h.firm, h.seedClient(h.firm), h.advisor, constants.EngagementTypeBBA, constants.EngagementDraft)
	_, err = h.svc.Start(ctx, h.advisor, &dto.StartReportRequest{EngagementID: draft.ID.String()})
	assertCode(t, err, errors.CodeWorkflowViolation)
}

func Test_BBAAppService_SubmitResponses_Validation(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)

	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{
		Answers: models.Answers{"finance": {"f1": 11}, "marketing": {"m1": 3}},
	})
	assertCode(t, err, errors.CodeInvalidRequest)
	appErr, _ := errors.AsAppError(err)
	assert.Contains(t, appErr.Metadata(), "finance.f1")
	assert.Contains(t, appErr.Metadata(), "marketing")

	_, err = h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: models.Answers{"finance": {}}})
	assertCode(t, err, errors.CodeInvalidRequest)

	// viewers read but never write
	viewer := h.seedUser(h.firm, constants.RoleClientViewer)
	_, err = h.svc.SubmitResponses(ctx, viewer, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	assertCode(t, err, errors.CodeForbidden)
	_, err = h.svc.Get(ctx, viewer, r.ID.String())
	require.NoError(t, err)

	_, err = h.svc.ExportScorecard(ctx, h.admin, r.ID.String())
	assertCode(t, err, errors.CodeWorkflowViolation)
}

func Test_BBAAppService_SubmitResponses_WaitsForRunningStep(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)
	_, err = h.step(r, constants.StepScoring)
	require.NoError(t, err)

	// 1. Hold the findings step open inside the model call
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.model.findingGate = func() {
		once.Do(func() { close(entered) })
		<-release
	}
	done := make(chan error, 1)
	go func() {
		_, err := h.step(r, constants.StepFindings)
		done <- err
	}()
	<-entered

	// 2. New answers are refused while the step owns the report
	newAnswers := models.Answers{"finance": {"f1": 10, "f2": 10}, "sales": {"s1": 10}}
	_, err = h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: newAnswers})
	assertCode(t, err, errors.CodeConflict)

	close(release)
	require.NoError(t, <-done)

	stored, err := h.svc.Get(ctx, h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.StepFindings, stored.CurrentStep)
	assert.Equal(t, bbaAnswers, stored.Responses)
}

func Test_BBAAppService_SubmitResponses_RechecksUnderLock(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)
	_, err = h.step(r, constants.StepScoring)
	require.NoError(t, err)

	// findings finish between the first read and the lock
	h.locker.beforeLock = func() {
		_, err := h.step(r, constants.StepFindings)
		require.NoError(t, err)
	}
	_, err = h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	assertCode(t, err, errors.CodeWorkflowViolation)

	stored, err := h.svc.Get(ctx, h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.StepFindings, stored.CurrentStep)
	assert.NotEmpty(t, stored.Findings)
}

func Test_BBAAppService_Cancel_Rules(t *testing.T) {
	h := newBBAHarness(t)
	ctx := context.Background()
	r := h.start(t)
	_, err := h.svc.SubmitResponses(ctx, h.advisor, r.ID.String(), &dto.SubmitResponsesRequest{Answers: bbaAnswers})
	require.NoError(t, err)
	for _, step := range []constants.BBAStep{constants.StepScoring, constants.StepFindings, constants.StepRecommendations, constants.StepRoadmap} {
		_, err = h.step(r, step)
		require.NoError(t, err, step)
	}

	// a held lock means a step is running
	unlock, ok, err := h.locker.TryLock(ctx, "bba:report:"+r.ID.String(), constants.ReportLockTTL)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = h.svc.Cancel(ctx, h.advisor, r.ID.String())
	assertCode(t, err, errors.CodeConflict)
	require.NoError(t, unlock(ctx))

	// the summary completes the report before cancel gets the lock
	h.locker.beforeLock = func() {
		_, err := h.step(r, constants.StepSummary)
		require.NoError(t, err)
	}
	_, err = h.svc.Cancel(ctx, h.advisor, r.ID.String())
	assertCode(t, err, errors.CodeWorkflowViolation)

	stored, err := h.svc.Get(ctx, h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, constants.ReportCompleted, stored.Status)
	assert.Empty(t, stored.LastError)

	_, err = h.svc.Cancel(ctx, h.advisor, r.ID.String())
	assertCode(t, err, errors.CodeWorkflowViolation)
}

func Test_BBAAppService_QuestionnaireIsNotAStep(t *testing.T) {
	h := newBBAHarness(t)
	r := h.start(t)

	_, err := h.step(r, constants.StepQuestionnaire)
	assertCode(t, err, errors.CodeWorkflowViolation)
	assert.Contains(t, errors.MessageOf(err), "/responses")

	stored, err := h.svc.Get(context.Background(), h.advisor, r.ID.String())
	require.NoError(t, err)
	assert.Empty(t, stored.LastError)
	assert.Empty(t, stored.CurrentStep)
}

//Personal.AI order the ending
