package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailroom-bot/mailroom-backend/internal/http/response"
	"github.com/mailroom-bot/mailroom-backend/internal/pkg/dbctx"
	"github.com/mailroom-bot/mailroom-backend/internal/services"
)

type ThreadHandler struct {
	threads     services.ThreadService
	correlation services.CorrelationService
}

func NewThreadHandler(threads services.ThreadService, correlation services.CorrelationService) *ThreadHandler {
	return &ThreadHandler{threads: threads, correlation: correlation}
}

func (h *ThreadHandler) GetThread(c *gin.Context) {
	thread, err := h.threads.GetThreadByChannelID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if thread == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, thread)
}

type closeThreadRequest struct {
	ClosedBy string `json:"closed_by" binding:"required"`
}

func (h *ThreadHandler) CloseThread(c *gin.Context) {
	var req closeThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	thread, err := h.threads.GetThreadByChannelID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if err := h.threads.CloseThread(c.Request.Context(), thread, req.ClosedBy); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, thread)
}

// ListThreadMessages returns the relayed messages of one thread oldest
// first, deleted rows included. Tombstones matter for reconciling against
// the staff surface.
func (h *ThreadHandler) ListThreadMessages(c *gin.Context) {
	thread, err := h.threads.GetThreadByChannelID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if thread == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}

	msgs, err := h.correlation.ListThreadMessages(dbctx.Context{Ctx: c.Request.Context()}, thread.ChannelID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread, "messages": msgs})
}

func (h *ThreadHandler) ListUserThreads(c *gin.Context) {
	threads, err := h.threads.ListThreadsByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}

func (h *ThreadHandler) ListMessageVersions(c *gin.Context) {
	versions, err := h.correlation.ListVersions(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": versions})
}
