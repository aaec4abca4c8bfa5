package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailroom-bot/mailroom-backend/internal/domain"
	"github.com/mailroom-bot/mailroom-backend/internal/http/response"
	"github.com/mailroom-bot/mailroom-backend/internal/services"
)

// RelayHandler exposes the two relay directions to the gateway process
// that receives surface events.
type RelayHandler struct {
	relay services.RelayService
}

func NewRelayHandler(relay services.RelayService) *RelayHandler {
	return &RelayHandler{relay: relay}
}

type userMessageRequest struct {
	UserID      string           `json:"user_id" binding:"required"`
	DisplayName string           `json:"display_name"`
	DMMessageID string           `json:"dm_message_id" binding:"required"`
	Content     string           `json:"content"`
	Attachments []domain.FileRef `json:"attachments"`
	Stickers    []domain.FileRef `json:"stickers"`
	Forwarded   bool             `json:"forwarded"`
}

func (h *RelayHandler) RelayUserMessage(c *gin.Context) {
	var req userMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	thread, row, isNew, err := h.relay.RelayUserMessage(c.Request.Context(), req.UserID, req.DisplayName, services.UserMessageInput{
		DMMessageID: req.DMMessageID,
		Content:     req.Content,
		Attachments: req.Attachments,
		Stickers:    req.Stickers,
		Forwarded:   req.Forwarded,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"thread":     thread,
		"message":    row,
		"new_thread": isNew,
	})
}

type staffMessageRequest struct {
	StaffID   string           `json:"staff_id" binding:"required"`
	MessageID string           `json:"message_id" binding:"required"`
	Content   string           `json:"content"`
	Anonymous bool             `json:"anonymous"`
	PlainText bool             `json:"plain_text"`
	Snippet   bool             `json:"snippet"`
	Files     []domain.FileRef `json:"attachments"`
	Stickers  []domain.FileRef `json:"stickers"`
}

func (h *RelayHandler) RelayStaffMessage(c *gin.Context) {
	var req staffMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	row, err := h.relay.RelayStaffMessage(c.Request.Context(), c.Param("id"), req.StaffID, services.StaffMessageInput{
		MessageID:   req.MessageID,
		Content:     req.Content,
		Attachments: req.Files,
		Stickers:    req.Stickers,
		Anonymous:   req.Anonymous,
		PlainText:   req.PlainText,
		Snippet:     req.Snippet,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"message": row})
}

type editMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *RelayHandler) EditStaffMessage(c *gin.Context) {
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.relay.EditStaffMessage(c.Request.Context(), c.Param("id"), req.Content); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"edited": true})
}

func (h *RelayHandler) DeleteStaffMessage(c *gin.Context) {
	if err := h.relay.DeleteStaffMessage(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
