// Package handlers adapts HTTP requests to the application services.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/interfaces/http/middleware"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// principal returns the authenticated caller or writes 401 and returns nil.
func principal(c *gin.Context) *models.Principal {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrUnauthorized("authentication required"))
		return nil
	}
	return p
}

// bindJSON decodes the body into v or writes 400.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("malformed request body").WithCause(err))
		return false
	}
	return true
}

// bindQuery decodes the query string into v or writes 400.
func bindQuery(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("malformed query parameters").WithCause(err))
		return false
	}
	return true
}

// sendFile writes a generated file as an attachment.
func sendFile(c *gin.Context, f *dto.FileResponse) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.FileName))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

// respond writes data with status or the error envelope.
func respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, status, data)
}

//Personal.AI order the ending
