package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// BBAAppService drives the Business Benchmark Analysis pipeline.
// BBAAppService 驱动 BBA 诊断报告的多步骤流程。
type BBAAppService interface {
	// Catalog returns the diagnostic questionnaire
	Catalog(ctx context.Context) *domainService.Catalog

	// Start opens a report on an active bba engagement and consumes one AI report unit
	Start(ctx context.Context, p *models.Principal, req *dto.StartReportRequest) (*models.BBAReport, error)

	// SubmitResponses stores questionnaire answers and resets every later step
	SubmitResponses(ctx context.Context, p *models.Principal, reportID string, req *dto.SubmitResponsesRequest) (*models.BBAReport, error)

	// RunStep executes the report's next step under a distributed lock
	RunStep(ctx context.Context, p *models.Principal, reportID string, req *dto.RunStepRequest) (*models.BBAReport, error)

	// Cancel fails an in-progress report, returning its quota unit
	Cancel(ctx context.Context, p *models.Principal, reportID string) (*models.BBAReport, error)

	Get(ctx context.Context, p *models.Principal, reportID string) (*models.BBAReport, error)
	GetStatus(ctx context.Context, p *models.Principal, reportID string) (*dto.ReportStatusResponse, error)
	List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.BBAReport, error)

	// ExportScorecard renders the scorecard and findings as xlsx
	ExportScorecard(ctx context.Context, p *models.Principal, reportID string) (*dto.FileResponse, error)

	// ExportScorecardByID is the trusted variant used by the admin CLI
	ExportScorecardByID(ctx context.Context, reportID string) (*dto.FileResponse, error)
}

// BBAOptions tunes the pipeline.
type BBAOptions struct {
	// MaxConcurrency bounds parallel finding generation.
	MaxConcurrency int
	// LockTTL bounds how long a step may hold the report lock.
	LockTTL time.Duration
}

type bbaAppServiceImpl struct {
	tx       repository.Transactor
	repos    repository.Repositories
	scorer   *domainService.Scorer
	model    domainService.AdvisorModel
	locker   domainService.WorkflowLocker
	exporter domainService.Exporter
	quota    *quotaGuard
	metrics  domainService.Metrics
	audit    domainService.AuditService
	opts     BBAOptions
	tracer   trace.Tracer
	logger   logger.Logger
}

// NewBBAAppService creates a new instance of BBAAppService
func NewBBAAppService(
	tx repository.Transactor,
	repos repository.Repositories,
	scorer *domainService.Scorer,
	model domainService.AdvisorModel,
	locker domainService.WorkflowLocker,
	exporter domainService.Exporter,
	cache domainService.SubscriptionCache,
	metrics domainService.Metrics,
	audit domainService.AuditService,
	opts BBAOptions,
	log logger.Logger,
) BBAAppService {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = constants.ReportLockTTL
	}
	if metrics == nil {
		metrics = domainService.NoopMetrics{}
	}
	log = log.WithComponent("BBAAppService")
	return &bbaAppServiceImpl{
		tx:       tx,
		repos:    repos,
		scorer:   scorer,
		model:    model,
		locker:   locker,
		exporter: exporter,
		quota:    newQuotaGuard(cache, log),
		metrics:  metrics,
		audit:    audit,
		opts:     opts,
		tracer:   otel.Tracer("advisorhub/bba"),
		logger:   log,
	}
}

func (s *bbaAppServiceImpl) Catalog(ctx context.Context) *domainService.Catalog {
	return s.scorer.Catalog()
}

func (s *bbaAppServiceImpl) Start(ctx context.Context, p *models.Principal, req *dto.StartReportRequest) (*models.BBAReport, error) {
	// 1. Validate request and engagement
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	engagementID, err := parseID("engagement_id", req.EngagementID)
	if err != nil {
		return nil, err
	}

	var report *models.BBAReport
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		e, err := editableEngagement(ctx, repos, p, engagementID)
		if err != nil {
			return err
		}
		if e.Type != constants.EngagementTypeBBA {
			return errors.ErrWorkflowViolation("engagement type is " + string(e.Type) + ", not bba")
		}
		if !e.IsActive() {
			return errors.ErrWorkflowViolation("engagement must be active to start a report")
		}

		// 2. One open report per engagement
		open, err := repos.Reports.HasOpenReport(ctx, e.FirmID, e.ID)
		if err != nil {
			return err
		}
		if open {
			return errors.ErrConflict("engagement already has a report")
		}

		// 3. Consume quota
		if err := s.quota.requireReportQuota(ctx, repos, e.FirmID); err != nil {
			return err
		}
		report = models.NewBBAReport(e.FirmID, e.ID, p.UserID)
		return repos.Reports.Save(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditReportStarted, "bba_report", report.ID.String()).
			WithMetadata("engagement_id", report.EngagementID.String()))
	s.logger.Info(ctx, "BBA report started", logger.String("report_id", report.ID.String()))
	return report, nil
}

func (s *bbaAppServiceImpl) SubmitResponses(ctx context.Context, p *models.Principal, reportID string, req *dto.SubmitResponsesRequest) (*models.BBAReport, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.scorer.Validate(req.Answers); err != nil {
		return nil, err
	}
	if req.Answers.Count() == 0 {
		return nil, errors.ErrValidation(map[string]string{"answers": "must contain at least one answer"})
	}

	report, _, err := s.editableReport(ctx, s.repos, p, reportID)
	if err != nil {
		return nil, err
	}
	if err := checkAcceptsResponses(report); err != nil {
		return nil, err
	}

	// A running step writes the whole report back; answers must wait for it.
	unlock, err := s.lock(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, report.ID, unlock)

	if report, err = s.repos.Reports.FindByID(ctx, report.FirmID, report.ID); err != nil {
		return nil, err
	}
	if err := checkAcceptsResponses(report); err != nil {
		return nil, err
	}
	report.SetResponses(req.Answers)
	report.UpdatedAt = time.Now().UTC()
	if err := s.repos.Reports.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// RunStep runs exactly the report's next step. A failed step records LastError and can be retried.
func (s *bbaAppServiceImpl) RunStep(ctx context.Context, p *models.Principal, reportID string, req *dto.RunStepRequest) (*models.BBAReport, error) {
	// 1. Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Step == constants.StepQuestionnaire {
		return nil, errors.ErrWorkflowViolation("answers are submitted with PUT /api/v1/reports/:report_id/responses, not as a step").
			WithMetadata("step", string(req.Step))
	}
	report, e, err := s.editableReport(ctx, s.repos, p, reportID)
	if err != nil {
		return nil, err
	}
	if err := checkNextStep(report, req.Step); err != nil {
		return nil, err
	}

	// 2. Serialize steps on this report across instances
	unlock, err := s.lock(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, report.ID, unlock)

	// 3. Reload under the lock; another instance may have advanced the report
	if report, err = s.repos.Reports.FindByID(ctx, report.FirmID, report.ID); err != nil {
		return nil, err
	}
	if err := checkNextStep(report, req.Step); err != nil {
		return nil, err
	}

	// 4. Execute
	ctx, span := s.tracer.Start(ctx, "bba.step."+string(req.Step),
		trace.WithAttributes(
			attribute.String("report.id", report.ID.String()),
			attribute.String("bba.step", string(req.Step))))
	defer span.End()

	started := time.Now()
	stepErr := s.execute(ctx, report, e, req.Step)
	s.metrics.RecordBBAStep(string(req.Step), stepErr == nil, time.Since(started))

	now := time.Now().UTC()
	report.UpdatedAt = now
	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		report.LastError = utils.Truncate(errors.MessageOf(stepErr), 1000)
		if err := s.repos.Reports.Update(ctx, report); err != nil {
			s.logger.Error(ctx, "Failed to record step failure", err, logger.String("report_id", report.ID.String()))
		}
		s.logger.Warn(ctx, "BBA step failed",
			logger.String("report_id", report.ID.String()),
			logger.String("step", string(req.Step)),
			logger.Err(stepErr))
		return nil, stepErr
	}

	// 5. Persist progress
	report.CompleteStep(req.Step, now)
	if err := s.repos.Reports.Update(ctx, report); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditReportStepCompleted, "bba_report", report.ID.String()).
			WithMetadata("step", string(req.Step)).
			WithMetadata("duration_ms", time.Since(started).Milliseconds()))
	if report.Status == constants.ReportCompleted {
		recordAudit(ctx, s.audit, s.logger,
			auditEvent(p, constants.AuditReportCompleted, "bba_report", report.ID.String()).
				WithMetadata("engagement_id", report.EngagementID.String()).
				WithMetadata("prompt_tokens", report.PromptTokens).
				WithMetadata("completion_tokens", report.CompletionTokens))
	}
	s.logger.Info(ctx, "BBA step completed",
		logger.String("report_id", report.ID.String()),
		logger.String("step", string(req.Step)),
		logger.Duration("duration", time.Since(started)))
	return report, nil
}

func (s *bbaAppServiceImpl) execute(ctx context.Context, r *models.BBAReport, e *models.Engagement, step constants.BBAStep) error {
	if step == constants.StepScoring {
		if r.Responses.Count() == 0 {
			return errors.ErrWorkflowViolation("no responses submitted")
		}
		r.Scores = s.scorer.Score(r.Responses)
		return nil
	}

	in, err := s.reportInput(ctx, r, e)
	if err != nil {
		return err
	}
	switch step {
	case constants.StepFindings:
		return s.runFindings(ctx, r, in)
	case constants.StepRecommendations:
		recs, usage, err := s.model.GenerateRecommendations(ctx, in)
		r.AddUsage(usage.Model, usage.PromptTokens, usage.CompletionTokens)
		if err != nil {
			return err
		}
		r.Recommendations = recs
	case constants.StepRoadmap:
		phases, usage, err := s.model.GenerateRoadmap(ctx, in)
		r.AddUsage(usage.Model, usage.PromptTokens, usage.CompletionTokens)
		if err != nil {
			return err
		}
		r.Roadmap = phases
	case constants.StepSummary:
		summary, usage, err := s.model.GenerateSummary(ctx, in)
		r.AddUsage(usage.Model, usage.PromptTokens, usage.CompletionTokens)
		if err != nil {
			return err
		}
		r.ExecutiveSummary = summary
	default:
		return errors.ErrInvalidParameterFormat("step", "scoring|findings|recommendations|roadmap|summary")
	}
	return nil
}

// runFindings asks the model about every red and amber module concurrently.
// Green modules get a templated strength finding; unscored modules are skipped.
func (s *bbaAppServiceImpl) runFindings(ctx context.Context, r *models.BBAReport, in domainService.ReportInput) error {
	modules := r.Scores.Modules
	results := make([]*models.Finding, len(modules))

	var (
		mu    sync.Mutex
		usage domainService.Usage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	for i, m := range modules {
		if !m.IsScored() {
			continue
		}
		if m.RAG == constants.RAGGreen {
			results[i] = s.strengthFinding(m)
			continue
		}
		cm, ok := s.scorer.Catalog().Module(m.Key)
		if !ok {
			continue
		}
		i, m := i, m
		g.Go(func() error {
			f, u, err := s.model.GenerateFinding(gctx, domainService.FindingInput{
				ClientName: in.ClientName,
				Industry:   in.Industry,
				Module:     cm,
				Score:      m,
				Answers:    r.Responses[m.Key],
			})
			mu.Lock()
			usage.Add(u)
			mu.Unlock()
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	err := g.Wait()
	r.AddUsage(usage.Model, usage.PromptTokens, usage.CompletionTokens)
	if err != nil {
		return err
	}

	findings := make([]models.Finding, 0, len(results))
	for _, f := range results {
		if f != nil {
			findings = append(findings, *f)
		}
	}
	r.Findings = findings
	return nil
}

func (s *bbaAppServiceImpl) strengthFinding(m models.ModuleScore) *models.Finding {
	score := 0.0
	if m.Score != nil {
		score = *m.Score
	}
	return &models.Finding{
		ModuleKey:  m.Key,
		ModuleName: m.Name,
		RAG:        m.RAG,
		Kind:       models.FindingStrength,
		Title:      m.Name + " is a strength",
		Summary:    fmt.Sprintf("%s scored %.2f out of 10, at or above the green threshold. Maintain current practices.", m.Name, score),
	}
}

func (s *bbaAppServiceImpl) reportInput(ctx context.Context, r *models.BBAReport, e *models.Engagement) (domainService.ReportInput, error) {
	if r.Scores == nil {
		return domainService.ReportInput{}, errors.ErrWorkflowViolation("report has not been scored")
	}
	client, err := s.repos.Clients.FindByID(ctx, r.FirmID, e.ClientID)
	if err != nil {
		return domainService.ReportInput{}, err
	}
	return domainService.ReportInput{
		ClientName:      client.Name,
		Industry:        client.Industry,
		Scorecard:       r.Scores,
		Findings:        r.Findings,
		Recommendations: r.Recommendations,
		Roadmap:         r.Roadmap,
	}, nil
}

func (s *bbaAppServiceImpl) Cancel(ctx context.Context, p *models.Principal, reportID string) (*models.BBAReport, error) {
	report, _, err := s.editableReport(ctx, s.repos, p, reportID)
	if err != nil {
		return nil, err
	}
	if err := checkCancelable(report); err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, report.ID, unlock)

	// The last step may have finished between the first read and the lock.
	if report, err = s.repos.Reports.FindByID(ctx, report.FirmID, report.ID); err != nil {
		return nil, err
	}
	if err := checkCancelable(report); err != nil {
		return nil, err
	}

	report.Status = constants.ReportFailed
	report.LastError = "canceled"
	report.UpdatedAt = time.Now().UTC()
	if err := s.repos.Reports.Update(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "BBA report canceled", logger.String("report_id", report.ID.String()))
	return report, nil
}

func (s *bbaAppServiceImpl) Get(ctx context.Context, p *models.Principal, reportID string) (*models.BBAReport, error) {
	report, _, err := s.visibleReport(ctx, s.repos, p, reportID)
	return report, err
}

func (s *bbaAppServiceImpl) GetStatus(ctx context.Context, p *models.Principal, reportID string) (*dto.ReportStatusResponse, error) {
	report, _, err := s.visibleReport(ctx, s.repos, p, reportID)
	if err != nil {
		return nil, err
	}
	return dto.NewReportStatus(report), nil
}

func (s *bbaAppServiceImpl) List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.BBAReport, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	e, err := visibleEngagement(ctx, s.repos, p, id)
	if err != nil {
		return nil, err
	}
	return s.repos.Reports.ListByEngagement(ctx, e.FirmID, e.ID)
}

func (s *bbaAppServiceImpl) ExportScorecard(ctx context.Context, p *models.Principal, reportID string) (*dto.FileResponse, error) {
	report, _, err := s.visibleReport(ctx, s.repos, p, reportID)
	if err != nil {
		return nil, err
	}
	file, err := s.export(report)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditExportGenerated, "bba_report", report.ID.String()).WithMetadata("kind", "scorecard"))
	return file, nil
}

func (s *bbaAppServiceImpl) ExportScorecardByID(ctx context.Context, reportID string) (*dto.FileResponse, error) {
	id, err := parseID("report_id", reportID)
	if err != nil {
		return nil, err
	}
	report, err := s.repos.Reports.FindByIDAnyFirm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.export(report)
}

func (s *bbaAppServiceImpl) export(report *models.BBAReport) (*dto.FileResponse, error) {
	if report.Scores == nil {
		return nil, errors.ErrWorkflowViolation("report has not been scored yet")
	}
	data, err := s.exporter.ScorecardXLSX(report)
	if err != nil {
		return nil, asServerError(err, "failed to render scorecard")
	}
	s.metrics.RecordExport("scorecard")
	return &dto.FileResponse{
		FileName:    fmt.Sprintf("bba-scorecard-%s.xlsx", report.ID.String()[:8]),
		ContentType: constants.XLSXContentType,
		Data:        data,
	}, nil
}

func (s *bbaAppServiceImpl) lock(ctx context.Context, reportID uuid.UUID) (func(context.Context) error, error) {
	unlock, ok, err := s.locker.TryLock(ctx, "bba:report:"+reportID.String(), s.opts.LockTTL)
	if err != nil {
		return nil, errors.ErrServiceUnavailable("report lock unavailable").WithCause(err)
	}
	if !ok {
		return nil, errors.ErrConflict("another step is running for this report")
	}
	return unlock, nil
}

func (s *bbaAppServiceImpl) releaseLock(ctx context.Context, reportID uuid.UUID, unlock func(context.Context) error) {
	if err := unlock(context.Background()); err != nil {
		s.logger.Warn(ctx, "Failed to release report lock", logger.String("report_id", reportID.String()), logger.Err(err))
	}
}

// visibleReport loads a report and its engagement if the caller can see the engagement.
func (s *bbaAppServiceImpl) visibleReport(ctx context.Context, repos repository.Repositories, p *models.Principal, reportID string) (*models.BBAReport, *models.Engagement, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseID("report_id", reportID)
	if err != nil {
		return nil, nil, err
	}
	report, err := repos.Reports.FindByID(ctx, firmID, id)
	if err != nil {
		return nil, nil, err
	}
	e, err := visibleEngagement(ctx, repos, p, report.EngagementID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, nil, errors.ErrNotFound("bba_report", id.String())
		}
		return nil, nil, err
	}
	return report, e, nil
}

func (s *bbaAppServiceImpl) editableReport(ctx context.Context, repos repository.Repositories, p *models.Principal, reportID string) (*models.BBAReport, *models.Engagement, error) {
	report, e, err := s.visibleReport(ctx, repos, p, reportID)
	if err != nil {
		return nil, nil, err
	}
	if !canEditEngagement(p, e) {
		return nil, nil, errors.ErrForbidden("read-only access to this report")
	}
	return report, e, nil
}

func checkAcceptsResponses(r *models.BBAReport) error {
	if !r.AcceptsResponses() {
		return errors.ErrWorkflowViolation("responses can only be changed before findings are generated").
			WithMetadata("current_step", string(r.CurrentStep))
	}
	return nil
}

func checkCancelable(r *models.BBAReport) error {
	if r.Status != constants.ReportInProgress {
		return errors.ErrWorkflowViolation("only in-progress reports can be canceled").
			WithMetadata("status", string(r.Status))
	}
	return nil
}

func checkNextStep(r *models.BBAReport, step constants.BBAStep) error {
	if r.Status != constants.ReportInProgress {
		return errors.ErrWorkflowViolation("report is " + string(r.Status))
	}
	if next := r.NextStep(); step != next {
		return errors.ErrWorkflowViolation("step "+string(step)+" cannot run now").
			WithMetadata("expected_step", string(next))
	}
	return nil
}

//Personal.AI order the ending
