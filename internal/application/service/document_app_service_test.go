package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

func Test_DocumentAppService_Upload(t *testing.T) {
	f := newFixture(t)
	store := newMemoryStore()
	svc := NewDocumentAppService(f.repos, store, 64, nil, f.audit, f.log)
	ctx := context.Background()
	firm, admin := f.seedFirm(constants.PlanStarter)
	e := f.seedEngagement(firm, f.seedClient(firm), admin, constants.EngagementTypeStrategyWorkbook, constants.EngagementActive)

	upload := func(name, body string) (*dto.UploadDocumentResponse, error) {
		return svc.Upload(ctx, admin, &dto.UploadDocumentRequest{EngagementID: e.ID.String(), FileName: name}, strings.NewReader(body))
	}

	resp, err := upload("../plan notes.md", "# Plan\ngrow")
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)
	assert.Equal(t, "text/markdown", resp.Document.ContentType)
	assert.NotContains(t, resp.Document.FileName, "/")
	assert.Len(t, resp.Document.SHA256, 64)
	assert.Contains(t, store.objects, resp.Document.StorageKey)

	again, err := upload("copy.md", "# Plan\ngrow")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, resp.Document.ID, again.Document.ID)

	docs, err := svc.List(ctx, admin, e.ID.String())
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	doc, rc, err := svc.Download(ctx, admin, resp.Document.ID.String())
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "# Plan\ngrow", string(data))
	assert.Equal(t, resp.Document.ID, doc.ID)
	assert.Contains(t, f.audit.types(), constants.AuditDocumentUploaded)
}

func Test_DocumentAppService_Upload_Rejections(t *testing.T) {
	f := newFixture(t)
	svc := NewDocumentAppService(f.repos, newMemoryStore(), 16, nil, f.audit, f.log)
	ctx := context.Background()
	firm, admin := f.seedFirm(constants.PlanStarter)
	client := f.seedClient(firm)
	e := f.seedEngagement(firm, client, admin, constants.EngagementTypeStrategyWorkbook, constants.EngagementActive)
	archived := f.seedEngagement(firm, client, admin, constants.EngagementTypeStrategyWorkbook, constants.EngagementArchived)
	viewer := f.seedUser(firm, constants.RoleClientViewer)

	req := func(id, name string, size int64) *dto.UploadDocumentRequest {
		return &dto.UploadDocumentRequest{EngagementID: id, FileName: name, SizeBytes: size}
	}

	_, err := svc.Upload(ctx, admin, req(e.ID.String(), "empty.txt", 0), strings.NewReader(""))
	assertCode(t, err, errors.CodeInvalidRequest)

	_, err = svc.Upload(ctx, admin, req(e.ID.String(), "virus.exe", 0), strings.NewReader("MZ"))
	assertCode(t, err, errors.CodeInvalidRequest)

	// the declared size is checked before reading, the real size after
	_, err = svc.Upload(ctx, admin, req(e.ID.String(), "big.txt", 1024), strings.NewReader("x"))
	assertCode(t, err, errors.CodeInvalidRequest)
	_, err = svc.Upload(ctx, admin, req(e.ID.String(), "big.txt", 0), strings.NewReader(strings.Repeat("x", 17)))
	assertCode(t, err, errors.CodeInvalidRequest)
	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, 413, appErr.HTTPStatus())

	_, err = svc.Upload(ctx, admin, req(archived.ID.String(), "notes.txt", 0), strings.NewReader("hello"))
	assertCode(t, err, errors.CodeWorkflowViolation)

	_, err = svc.Upload(ctx, viewer, req(e.ID.String(), "notes.txt", 0), strings.NewReader("hello"))
	assertCode(t, err, errors.CodeForbidden)
}

func Test_DocumentAppService_Upload_StoreFailure(t *testing.T) {
	f := newFixture(t)
	store := newMemoryStore()
	store.failPut = errors.ErrStorage("put", io.ErrUnexpectedEOF)
	svc := NewDocumentAppService(f.repos, store, 0, nil, f.audit, f.log)
	ctx := context.Background()
	firm, admin := f.seedFirm(constants.PlanStarter)
	e := f.seedEngagement(firm, f.seedClient(firm), admin, constants.EngagementTypeGeneral, constants.EngagementActive)

	_, err := svc.Upload(ctx, admin, &dto.UploadDocumentRequest{EngagementID: e.ID.String(), FileName: "a.csv"}, strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)

	docs, err := f.repos.Documents.ListByEngagement(ctx, firm.ID, e.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func Test_DocumentAppService_Delete(t *testing.T) {
	f := newFixture(t)
	store := newMemoryStore()
	svc := NewDocumentAppService(f.repos, store, 0, nil, f.audit, f.log)
	ctx := context.Background()
	firm, admin := f.seedFirm(constants.PlanStarter)
	e := f.seedEngagement(firm, f.seedClient(firm), admin, constants.EngagementTypeGeneral, constants.EngagementActive)

	resp, err := svc.Upload(ctx, admin, &dto.UploadDocumentRequest{EngagementID: e.ID.String(), FileName: "a.txt"}, strings.NewReader("hello"))
	require.NoError(t, err)

	// advisors not assigned to the engagement cannot see the document
	stranger := f.seedUser(firm, constants.RoleAdvisor)
	assertCode(t, svc.Delete(ctx, stranger, resp.Document.ID.String()), errors.CodeNotFound)

	require.NoError(t, svc.Delete(ctx, admin, resp.Document.ID.String()))
	assert.Empty(t, store.objects)
	_, _, err = svc.Download(ctx, admin, resp.Document.ID.String())
	assertCode(t, err, errors.CodeNotFound)
	assert.Contains(t, f.audit.types(), constants.AuditDocumentDeleted)
}

//Personal.AI order the ending
