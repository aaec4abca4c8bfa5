package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailroom-bot/mailroom-backend/internal/http/response"
	"github.com/mailroom-bot/mailroom-backend/internal/services"
)

type ReactionHandler struct {
	reactions services.ReactionService
}

func NewReactionHandler(reactions services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

type userReactionRequest struct {
	DMMessageID string `json:"dm_message_id" binding:"required"`
	ReactorName string `json:"reactor_name"`
	Emoji       string `json:"emoji" binding:"required"`
}

func (h *ReactionHandler) AddUserReaction(c *gin.Context) {
	var req userReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.reactions.RelayUserReactionAdd(c.Request.Context(), req.DMMessageID, req.ReactorName, req.Emoji); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mirrored": true})
}

func (h *ReactionHandler) RemoveUserReaction(c *gin.Context) {
	var req userReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.reactions.RelayUserReactionRemove(c.Request.Context(), req.DMMessageID, req.Emoji); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mirrored": true})
}

type staffReactionRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

func (h *ReactionHandler) AddStaffReaction(c *gin.Context) {
	var req staffReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.reactions.RelayStaffReactionAdd(c.Request.Context(), req.MessageID, req.Emoji); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mirrored": true})
}

func (h *ReactionHandler) RemoveStaffReaction(c *gin.Context) {
	var req staffReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.reactions.RelayStaffReactionRemove(c.Request.Context(), req.MessageID, req.Emoji); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"mirrored": true})
}
