package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/application/service"
)

// ClientHandler exposes CRUD on the firm's clients.
type ClientHandler struct {
	clients service.ClientAppService
}

func NewClientHandler(clients service.ClientAppService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

func (h *ClientHandler) Create(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ClientRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.clients.Create(c.Request.Context(), p, &req)
	respond(c, http.StatusCreated, client, err)
}

func (h *ClientHandler) Get(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	client, err := h.clients.Get(c.Request.Context(), p, c.Param("client_id"))
	respond(c, http.StatusOK, client, err)
}

func (h *ClientHandler) Update(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var req dto.ClientRequest
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.clients.Update(c.Request.Context(), p, c.Param("client_id"), &req)
	respond(c, http.StatusOK, client, err)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), p, c.Param("client_id")); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) List(c *gin.Context) {
	p := principal(c)
	if p == nil {
		return
	}
	var page dto.PageRequest
	if !bindQuery(c, &page) {
		return
	}
	resp, err := h.clients.List(c.Request.Context(), p, page)
	respond(c, http.StatusOK, resp, err)
}

//Personal.AI order the ending
