package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/http/response"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
	"github.com/yungbote/supportchat-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type createThreadReq struct {
	ContextType string `json:"context_type"`
	ContextID   string `json:"context_id"`
}

// POST /api/chat/threads
func (h *ChatHandler) CreateThread(c *gin.Context) {
	var req createThreadReq
	if err := bindJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, created, err := h.chat.CreateOrGetThread(dbc, req.ContextType, req.ContextID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"thread": thread})
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

// GET /api/chat/threads?context_type=job&context_id=123&limit=50
func (h *ChatHandler) ListThreads(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	threads, err := h.chat.ListThreads(dbc, services.ThreadFilter{
		ContextType: c.Query("context_type"),
		ContextID:   c.Query("context_id"),
		Limit:       queryLimit(c),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": threads})
}

// GET /api/chat/threads/:id
func (h *ChatHandler) GetThread(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, err := h.chat.GetThread(dbc, threadID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

// GET /api/chat/threads/:id/messages?limit=50&before_seq=123
// GET /api/chat/threads/:id/messages?limit=50&after_seq=123
func (h *ChatHandler) ListMessages(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	before, err := queryBeforeSeq(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	after, err := queryAfterSeq(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if before != nil && after != nil {
		response.RespondServiceError(c, domainerrors.Validation("before_seq and after_seq are mutually exclusive"))
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	var msgs []*types.ChatMessage
	if after != nil {
		msgs, err = h.chat.ListMessagesSince(dbc, threadID, *after, pageLimit(c))
	} else {
		msgs, err = h.chat.ListMessages(dbc, threadID, queryLimit(c), before)
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": msgs})
}

type postMessageReq struct {
	Text     string `json:"text"`
	ClientID string `json:"client_id"`
}

// POST /api/chat/threads/:id/messages
func (h *ChatHandler) PostMessage(c *gin.Context) {
	postMessage(c, h.chat, types.SenderUser)
}

type requestAdminReq struct {
	Note string `json:"note"`
}

// POST /api/chat/threads/:id/request-admin
func (h *ChatHandler) RequestAdmin(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var req requestAdminReq
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	thread, err := h.chat.RequestAdminHandoff(dbc, threadID, req.Note)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"thread": thread})
}

// POST /api/chat/threads/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.chat.MarkRead(dbc, threadID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func postMessage(c *gin.Context, chat services.ChatService, role types.SenderRole) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var req postMessageReq
	if err := bindJSON(c, &req); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msg, created, err := chat.PostMessage(dbc, threadID, role, req.Text, clientID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if created {
		response.RespondCreated(c, gin.H{"message": msg})
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}
