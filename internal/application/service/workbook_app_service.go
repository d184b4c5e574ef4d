package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// WorkbookAppService runs the strategy workbook extraction pipeline.
type WorkbookAppService interface {
	// Extract sends the engagement's documents to the model and stores the normalised workbook
	Extract(ctx context.Context, p *models.Principal, req *dto.ExtractWorkbookRequest) (*dto.WorkbookResponse, error)
	Get(ctx context.Context, p *models.Principal, workbookID string) (*dto.WorkbookResponse, error)
	List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.StrategyWorkbook, error)
	// Update applies an advisor edit; invalid content is rejected, not repaired
	Update(ctx context.Context, p *models.Principal, workbookID string, req *dto.UpdateWorkbookRequest) (*dto.WorkbookResponse, error)
	Export(ctx context.Context, p *models.Principal, workbookID string) (*dto.FileResponse, error)
	// ExportByID is the trusted variant used by the admin CLI
	ExportByID(ctx context.Context, workbookID string) (*dto.FileResponse, error)
}

type workbookAppServiceImpl struct {
	repos     repository.Repositories
	store     domainService.DocumentStore
	model     domainService.AdvisorModel
	exporter  domainService.Exporter
	warnRatio float64
	metrics   domainService.Metrics
	audit     domainService.AuditService
	tracer    trace.Tracer
	logger    logger.Logger
}

// NewWorkbookAppService creates a new instance of WorkbookAppService
func NewWorkbookAppService(
	repos repository.Repositories,
	store domainService.DocumentStore,
	model domainService.AdvisorModel,
	exporter domainService.Exporter,
	warnRatio float64,
	metrics domainService.Metrics,
	audit domainService.AuditService,
	log logger.Logger,
) WorkbookAppService {
	if warnRatio <= 0 {
		warnRatio = constants.DefaultCapacityWarnRatio
	}
	if metrics == nil {
		metrics = domainService.NoopMetrics{}
	}
	return &workbookAppServiceImpl{
		repos:     repos,
		store:     store,
		model:     model,
		exporter:  exporter,
		warnRatio: warnRatio,
		metrics:   metrics,
		audit:     audit,
		tracer:    otel.Tracer("advisorhub/workbook"),
		logger:    log.WithComponent("WorkbookAppService"),
	}
}

func (s *workbookAppServiceImpl) Extract(ctx context.Context, p *models.Principal, req *dto.ExtractWorkbookRequest) (*dto.WorkbookResponse, error) {
	// 1. Validate request and engagement
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	engagementID, err := parseID("engagement_id", req.EngagementID)
	if err != nil {
		return nil, err
	}
	e, err := editableEngagement(ctx, s.repos, p, engagementID)
	if err != nil {
		return nil, err
	}
	if e.Type != constants.EngagementTypeStrategyWorkbook {
		return nil, errors.ErrWorkflowViolation("engagement type is " + string(e.Type) + ", not strategy_workbook")
	}
	if e.Status == constants.EngagementArchived {
		return nil, errors.ErrWorkflowViolation("engagement is archived")
	}

	// 2. Resolve documents; each must belong to the engagement
	docs, err := s.engagementDocuments(ctx, e, req.DocumentIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	ctx, span := s.tracer.Start(ctx, "workbook.extract",
		trace.WithAttributes(
			attribute.String("engagement.id", e.ID.String()),
			attribute.Int("documents", len(docs))))
	defer span.End()

	// 3. Persist a pending workbook so failures stay visible
	wb := models.NewStrategyWorkbook(e.FirmID, e.ID, ids)
	if err := s.repos.Workbooks.Save(ctx, wb); err != nil {
		return nil, err
	}

	fail := func(cause error) (*dto.WorkbookResponse, error) {
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
		wb.Status = constants.WorkbookFailed
		wb.LastError = utils.Truncate(errors.MessageOf(cause), 1000)
		wb.UpdatedAt = time.Now().UTC()
		if err := s.repos.Workbooks.Update(ctx, wb); err != nil {
			s.logger.Error(ctx, "Failed to record extraction failure", err, logger.String("workbook_id", wb.ID.String()))
		}
		s.logger.Warn(ctx, "Workbook extraction failed", logger.String("workbook_id", wb.ID.String()), logger.Err(cause))
		return nil, cause
	}

	// 4. Load bytes and call the model
	attachments, err := s.attachments(ctx, docs)
	if err != nil {
		return fail(err)
	}
	extracted, usage, err := s.model.ExtractWorkbook(ctx, attachments)
	if err != nil {
		return fail(err)
	}

	// 5. Normalise and store
	warnings := domainService.NormalizeWorkbook(extracted)
	extracted.ApplyTo(wb)
	now := time.Now().UTC()
	wb.Warnings = warnings
	wb.Status = constants.WorkbookExtracted
	wb.ModelName = usage.Model
	wb.ExtractedAt = &now
	wb.LastError = ""
	wb.UpdatedAt = now
	if err := s.repos.Workbooks.Update(ctx, wb); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditWorkbookExtracted, "workbook", wb.ID.String()).
			WithMetadata("engagement_id", e.ID.String()).
			WithMetadata("documents", len(docs)).
			WithMetadata("warnings", len(warnings)).
			WithMetadata("prompt_tokens", usage.PromptTokens).
			WithMetadata("completion_tokens", usage.CompletionTokens))
	s.logger.Info(ctx, "Workbook extracted",
		logger.String("workbook_id", wb.ID.String()),
		logger.Int("objectives", len(wb.Objectives)),
		logger.Int("initiatives", len(wb.Initiatives)),
		logger.Int("warnings", len(warnings)))

	return s.response(wb), nil
}

func (s *workbookAppServiceImpl) engagementDocuments(ctx context.Context, e *models.Engagement, rawIDs []string) ([]*models.Document, error) {
	seen := make(map[uuid.UUID]bool, len(rawIDs))
	docs := make([]*models.Document, 0, len(rawIDs))
	details := make(map[string]string)
	for i, raw := range rawIDs {
		field := fmt.Sprintf("document_ids[%d]", i)
		id, err := uuid.Parse(raw)
		if err != nil {
			details[field] = "must be a valid UUID"
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		doc, err := s.repos.Documents.FindByID(ctx, e.FirmID, id)
		if err != nil {
			if errors.IsNotFoundError(err) {
				details[field] = "document not found"
				continue
			}
			return nil, err
		}
		if doc.EngagementID != e.ID {
			details[field] = "document does not belong to the engagement"
			continue
		}
		docs = append(docs, doc)
	}
	if len(details) > 0 {
		return nil, errors.ErrValidation(details)
	}
	return docs, nil
}

func (s *workbookAppServiceImpl) attachments(ctx context.Context, docs []*models.Document) ([]domainService.Attachment, error) {
	out := make([]domainService.Attachment, 0, len(docs))
	for _, d := range docs {
		rc, err := s.store.Get(ctx, d.StorageKey)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.ErrStorage("read document", err)
		}
		out = append(out, domainService.Attachment{Name: d.FileName, MIMEType: d.ContentType, Data: data})
	}
	return out, nil
}

func (s *workbookAppServiceImpl) Get(ctx context.Context, p *models.Principal, workbookID string) (*dto.WorkbookResponse, error) {
	wb, _, err := s.visibleWorkbook(ctx, p, workbookID)
	if err != nil {
		return nil, err
	}
	return s.response(wb), nil
}

func (s *workbookAppServiceImpl) List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.StrategyWorkbook, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	e, err := visibleEngagement(ctx, s.repos, p, id)
	if err != nil {
		return nil, err
	}
	return s.repos.Workbooks.ListByEngagement(ctx, e.FirmID, e.ID)
}

func (s *workbookAppServiceImpl) Update(ctx context.Context, p *models.Principal, workbookID string, req *dto.UpdateWorkbookRequest) (*dto.WorkbookResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	wb, e, err := s.visibleWorkbook(ctx, p, workbookID)
	if err != nil {
		return nil, err
	}
	if !canEditEngagement(p, e) {
		return nil, errors.ErrForbidden("read-only access to this workbook")
	}
	if wb.Status != constants.WorkbookExtracted {
		return nil, errors.ErrWorkflowViolation("workbook is " + string(wb.Status) + "; only extracted workbooks can be edited")
	}

	if req.Vision != nil {
		wb.Vision = strings.TrimSpace(*req.Vision)
	}
	if req.Mission != nil {
		wb.Mission = strings.TrimSpace(*req.Mission)
	}
	if req.SWOT != nil {
		wb.SWOT = *req.SWOT
	}
	if req.Objectives != nil {
		wb.Objectives = *req.Objectives
	}
	if req.Initiatives != nil {
		wb.Initiatives = *req.Initiatives
	}
	if req.Owners != nil {
		wb.Owners = *req.Owners
	}
	if err := domainService.ValidateWorkbookContent(wb.Objectives, wb.Initiatives, wb.Owners); err != nil {
		return nil, err
	}

	wb.UpdatedAt = time.Now().UTC()
	if err := s.repos.Workbooks.Update(ctx, wb); err != nil {
		return nil, err
	}
	return s.response(wb), nil
}

func (s *workbookAppServiceImpl) Export(ctx context.Context, p *models.Principal, workbookID string) (*dto.FileResponse, error) {
	wb, _, err := s.visibleWorkbook(ctx, p, workbookID)
	if err != nil {
		return nil, err
	}
	file, err := s.export(wb)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditExportGenerated, "workbook", wb.ID.String()).WithMetadata("kind", "workbook"))
	return file, nil
}

func (s *workbookAppServiceImpl) ExportByID(ctx context.Context, workbookID string) (*dto.FileResponse, error) {
	id, err := parseID("workbook_id", workbookID)
	if err != nil {
		return nil, err
	}
	wb, err := s.repos.Workbooks.FindByIDAnyFirm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.export(wb)
}

func (s *workbookAppServiceImpl) export(wb *models.StrategyWorkbook) (*dto.FileResponse, error) {
	if wb.Status != constants.WorkbookExtracted {
		return nil, errors.ErrWorkflowViolation("workbook is " + string(wb.Status))
	}
	data, err := s.exporter.WorkbookXLSX(wb)
	if err != nil {
		return nil, asServerError(err, "failed to render workbook")
	}
	s.metrics.RecordExport("workbook")
	return &dto.FileResponse{
		FileName:    fmt.Sprintf("strategy-workbook-%s.xlsx", wb.ID.String()[:8]),
		ContentType: constants.XLSXContentType,
		Data:        data,
	}, nil
}

func (s *workbookAppServiceImpl) response(wb *models.StrategyWorkbook) *dto.WorkbookResponse {
	report := domainService.ComputeCapacity(wb.Owners, wb.Initiatives, s.warnRatio)
	return &dto.WorkbookResponse{Workbook: wb, Loads: report.Loads, Warnings: report.Warnings}
}

func (s *workbookAppServiceImpl) visibleWorkbook(ctx context.Context, p *models.Principal, workbookID string) (*models.StrategyWorkbook, *models.Engagement, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, nil, err
	}
	id, err := parseID("workbook_id", workbookID)
	if err != nil {
		return nil, nil, err
	}
	wb, err := s.repos.Workbooks.FindByID(ctx, firmID, id)
	if err != nil {
		return nil, nil, err
	}
	e, err := visibleEngagement(ctx, s.repos, p, wb.EngagementID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, nil, errors.ErrNotFound("workbook", id.String())
		}
		return nil, nil, err
	}
	return wb, e, nil
}

//Personal.AI order the ending
