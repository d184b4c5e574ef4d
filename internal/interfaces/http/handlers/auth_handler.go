package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// AuthHandler handles HTTP requests for authentication and firm users.
// AuthHandler 处理认证与用户管理请求。
type AuthHandler struct {
	identity service.IdentityAppService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity service.IdentityAppService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// Register creates a firm on a trial together with its first admin.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.identity.Register(c.Request.Context(), &req)
	respond(c, http.StatusCreated, resp, err)
}

// Login exchanges credentials for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.identity.Login(c.Request.Context(), &req)
	respond(c, http.StatusOK, resp, err)
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	err := h.identity.Logout(c.Request.Context(), p)
	respond(c, http.StatusOK, gin.H{"revoked": true}, err)
}

func (h *AuthHandler) Me(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	user, err := h.identity.Me(c.Request.Context(), p)
	respond(c, http.StatusOK, user, err)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.identity.ChangePassword(c.Request.Context(), p, &req)
	respond(c, http.StatusOK, gin.H{"changed": true}, err)
}

// InviteUser creates a user and returns its temporary password once.
func (h *AuthHandler) InviteUser(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.InviteUserRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.identity.InviteUser(c.Request.Context(), p, &req)
	respond(c, http.StatusCreated, resp, err)
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var page dto.PageRequest
	if !bindQuery(c, &page) {
		return
	}
	resp, err := h.identity.ListUsers(c.Request.Context(), p, page)
	respond(c, http.StatusOK, resp, err)
}

func (h *AuthHandler) DeactivateUser(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	user, err := h.identity.DeactivateUser(c.Request.Context(), p, c.Param("user_id"))
	respond(c, http.StatusOK, user, err)
}

//Personal.AI order the ending
