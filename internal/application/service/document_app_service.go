package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
	"github.com/turtacn/advisorhub/pkg/utils"
)

// DocumentAppService handles engagement document upload and retrieval.
// DocumentAppService 处理项目文档的上传与下载。
type DocumentAppService interface {
	// Upload stores a file for an engagement. Identical content already on the engagement is returned instead.
	Upload(ctx context.Context, p *models.Principal, req *dto.UploadDocumentRequest, body io.Reader) (*dto.UploadDocumentResponse, error)

	// Download opens the document's bytes; the caller closes the reader.
	Download(ctx context.Context, p *models.Principal, documentID string) (*models.Document, io.ReadCloser, error)

	List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.Document, error)

	// Delete removes the stored object, then the metadata row.
	Delete(ctx context.Context, p *models.Principal, documentID string) error
}

type documentAppServiceImpl struct {
	repos    repository.Repositories
	store    domainService.DocumentStore
	maxBytes int64
	metrics  domainService.Metrics
	audit    domainService.AuditService
	logger   logger.Logger
}

// NewDocumentAppService creates a new instance of DocumentAppService
func NewDocumentAppService(
	repos repository.Repositories,
	store domainService.DocumentStore,
	maxBytes int64,
	metrics domainService.Metrics,
	audit domainService.AuditService,
	log logger.Logger,
) DocumentAppService {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxUploadBytes
	}
	if metrics == nil {
		metrics = domainService.NoopMetrics{}
	}
	return &documentAppServiceImpl{
		repos:    repos,
		store:    store,
		maxBytes: maxBytes,
		metrics:  metrics,
		audit:    audit,
		logger:   log.WithComponent("DocumentAppService"),
	}
}

func (s *documentAppServiceImpl) Upload(ctx context.Context, p *models.Principal, req *dto.UploadDocumentRequest, body io.Reader) (*dto.UploadDocumentResponse, error) {
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
	if e.Status == constants.EngagementArchived {
		return nil, errors.ErrWorkflowViolation("engagement is archived")
	}

	// 2. Check type and declared size
	contentType, ok := constants.AllowedContentTypes[strings.ToLower(filepath.Ext(req.FileName))]
	if !ok {
		return nil, errors.ErrInvalidRequest("unsupported file type; allowed: pdf, docx, xlsx, csv, txt, md").
			WithMetadata("file_name", req.FileName)
	}
	if req.SizeBytes > s.maxBytes {
		return nil, s.tooLarge()
	}

	// 3. Read at most maxBytes+1 and hash
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, errors.ErrInvalidRequest("failed to read upload").WithCause(err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, s.tooLarge()
	}
	if len(data) == 0 {
		return nil, errors.ErrInvalidRequest("file is empty")
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	// 4. Identical content on this engagement is returned as is
	existing, err := s.repos.Documents.FindBySHA256(ctx, e.FirmID, e.ID, digest)
	if err == nil {
		s.logger.Info(ctx, "Duplicate upload", logger.String("document_id", existing.ID.String()))
		return &dto.UploadDocumentResponse{Document: existing, Duplicate: true}, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	// 5. Store the object, then the row
	doc := &models.Document{
		ID:           uuid.New(),
		FirmID:       e.FirmID,
		EngagementID: e.ID,
		FileName:     utils.SanitizeFileName(req.FileName),
		ContentType:  contentType,
		SizeBytes:    int64(len(data)),
		SHA256:       digest,
		UploadedBy:   p.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	doc.StorageKey = models.DocumentStorageKey(doc.FirmID, doc.EngagementID, doc.ID, doc.FileName)

	if err := s.store.Put(ctx, doc.StorageKey, contentType, bytes.NewReader(data), doc.SizeBytes); err != nil {
		return nil, errors.Wrap(err, errors.CodeServerError, "failed to store document")
	}
	if err := s.repos.Documents.Save(ctx, doc); err != nil {
		if derr := s.store.Delete(ctx, doc.StorageKey); derr != nil {
			s.logger.Warn(ctx, "Orphaned document object", logger.String("key", doc.StorageKey), logger.Err(derr))
		}
		return nil, err
	}

	s.metrics.RecordDocumentUploaded(contentType, doc.SizeBytes)
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditDocumentUploaded, "document", doc.ID.String()).
			WithMetadata("engagement_id", e.ID.String()).
			WithMetadata("file_name", doc.FileName).
			WithMetadata("size_bytes", doc.SizeBytes))
	s.logger.Info(ctx, "Document uploaded",
		logger.String("document_id", doc.ID.String()),
		logger.String("content_type", contentType),
		logger.Int64("size_bytes", doc.SizeBytes))

	return &dto.UploadDocumentResponse{Document: doc}, nil
}

func (s *documentAppServiceImpl) Download(ctx context.Context, p *models.Principal, documentID string) (*models.Document, io.ReadCloser, error) {
	doc, err := s.visibleDocument(ctx, p, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func (s *documentAppServiceImpl) List(ctx context.Context, p *models.Principal, engagementID string) ([]*models.Document, error) {
	id, err := parseID("engagement_id", engagementID)
	if err != nil {
		return nil, err
	}
	e, err := visibleEngagement(ctx, s.repos, p, id)
	if err != nil {
		return nil, err
	}
	return s.repos.Documents.ListByEngagement(ctx, e.FirmID, e.ID)
}

func (s *documentAppServiceImpl) Delete(ctx context.Context, p *models.Principal, documentID string) error {
	doc, err := s.visibleDocument(ctx, p, documentID)
	if err != nil {
		return err
	}
	if _, err := editableEngagement(ctx, s.repos, p, doc.EngagementID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil && !errors.IsNotFoundError(err) {
		return errors.Wrap(err, errors.CodeServerError, "failed to delete stored document")
	}
	if err := s.repos.Documents.Delete(ctx, doc.FirmID, doc.ID); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, s.logger,
		auditEvent(p, constants.AuditDocumentDeleted, "document", doc.ID.String()).
			WithMetadata("engagement_id", doc.EngagementID.String()).
			WithMetadata("file_name", doc.FileName))
	return nil
}

// visibleDocument loads a document whose engagement the caller can see.
func (s *documentAppServiceImpl) visibleDocument(ctx context.Context, p *models.Principal, documentID string) (*models.Document, error) {
	firmID, err := requireFirm(p)
	if err != nil {
		return nil, err
	}
	id, err := parseID("document_id", documentID)
	if err != nil {
		return nil, err
	}
	doc, err := s.repos.Documents.FindByID(ctx, firmID, id)
	if err != nil {
		return nil, err
	}
	if _, err := visibleEngagement(ctx, s.repos, p, doc.EngagementID); err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.ErrNotFound("document", id.String())
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentAppServiceImpl) tooLarge() error {
	return errors.NewError(errors.CodeInvalidRequest, http.StatusRequestEntityTooLarge,
		"The uploaded file exceeds the size limit.", "file is too large").
		WithMetadata("max_bytes", s.maxBytes)
}

//Personal.AI order the ending
