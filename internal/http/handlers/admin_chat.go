package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/http/response"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/services"
)

// AdminChatHandler serves the admin queue. Routes are mounted behind RequireAdmin.
type AdminChatHandler struct {
	chat services.ChatService
}

func NewAdminChatHandler(chat services.ChatService) *AdminChatHandler {
	return &AdminChatHandler{chat: chat}
}

// GET /api/admin/chat/threads?state=pending|served|admin|ai|all&assigned=me&limit=50
func (h *AdminChatHandler) ListQueue(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	threads, err := h.chat.ListQueue(dbc, services.QueueQuery{
		State:        c.Query("state"),
		AssignedToMe: strings.EqualFold(strings.TrimSpace(c.Query("assigned")), "me"),
		Limit:        queryLimit(c),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": threads})
}

// GET /api/admin/chat/threads/:id/messages
func (h *AdminChatHandler) ListMessages(c *gin.Context) {
	(&ChatHandler{chat: h.chat}).ListMessages(c)
}

// GET /api/admin/chat/threads/:id
func (h *AdminChatHandler) GetThread(c *gin.Context) {
	(&ChatHandler{chat: h.chat}).GetThread(c)
}

// POST /api/admin/chat/threads/:id/messages
func (h *AdminChatHandler) PostMessage(c *gin.Context) {
	postMessage(c, h.chat, types.SenderAdmin)
}

type takeOverReq struct {
	AdminUserID *uuid.UUID `json:"admin_user_id"`
	Version     *int64     `json:"version"`
}

// POST /api/admin/chat/threads/:id/takeover
func (h *AdminChatHandler) TakeOver(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var req takeOverReq
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, err := h.chat.AdminTakeOverThread(dbc, threadID, req.AdminUserID, req.Version)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

type releaseReq struct {
	Provider *string `json:"provider"`
}

// POST /api/admin/chat/threads/:id/release-to-ai
func (h *AdminChatHandler) ReleaseToAI(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var req releaseReq
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, err := h.chat.AdminReleaseToAI(dbc, threadID, req.Provider)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

type setProviderReq struct {
	Provider string `json:"provider"`
}

// PATCH /api/admin/chat/threads/:id/ai-provider
func (h *AdminChatHandler) SetAIProvider(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var req setProviderReq
	if err := bindJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, err := h.chat.AdminSetAIProvider(dbc, threadID, req.Provider)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}
