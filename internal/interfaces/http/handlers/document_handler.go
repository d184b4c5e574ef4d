package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// DocumentHandler handles engagement document uploads and downloads.
// DocumentHandler 处理文档上传与下载。
type DocumentHandler struct {
	documents service.DocumentAppService
}

func NewDocumentHandler(documents service.DocumentAppService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload streams the multipart "file" part to the document service without buffering the whole form.
func (h *DocumentHandler) Upload(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}

	// 1. Find the file part
	mr, err := c.Request.MultipartReader()
	if err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("expected a multipart/form-data body").WithCause(err))
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			dto.SendError(c, errors.ErrMissingRequiredParameter(uploadField))
			return
		}
		if err != nil {
			dto.SendError(c, errors.ErrInvalidRequest("malformed multipart body").WithCause(err))
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		// 2. Hand the stream to the service
		req := &dto.UploadDocumentRequest{
			EngagementID: c.Param("engagement_id"),
			FileName:     part.FileName(),
		}
		resp, err := h.documents.Upload(c.Request.Context(), p, req, part)
		_ = part.Close()
		if err != nil {
			dto.SendError(c, err)
			return
		}
		status := http.StatusCreated
		if resp.Duplicate {
			status = http.StatusOK
		}
		dto.SendSuccess(c, status, resp)
		return
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	docs, err := h.documents.List(c.Request.Context(), p, c.Param("engagement_id"))
	respond(c, http.StatusOK, docs, err)
}

// Download streams the stored bytes back with the original file name.
func (h *DocumentHandler) Download(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	doc, rc, err := h.documents.Download(c.Request.Context(), p, c.Param("document_id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, doc.FileName),
	})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), p, c.Param("document_id")); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

//Personal.AI order the ending
