package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/http/response"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/platform/apierr"
	"github.com/yungbote/supportchat-backend/internal/realtime"
	"github.com/yungbote/supportchat-backend/internal/services"
)

// RealtimeHandler upgrades to WebSocket and joins the socket to hub rooms.
// Frames are best effort; clients recover anything missed through the HTTP log.
type RealtimeHandler struct {
	log      *logger.Logger
	chat     services.ChatService
	hub      *realtime.Hub
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(log *logger.Logger, chat services.ChatService, hub *realtime.Hub, metrics *observability.Metrics, allowOrigins []string) *RealtimeHandler {
	allowed := map[string]bool{}
	for _, o := range allowOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		chat:    chat,
		hub:     hub,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				return allowed[strings.TrimRight(origin, "/")]
			},
		},
	}
}

// GET /api/chat/threads/:id/ws?after_seq=N
func (h *RealtimeHandler) ThreadSocket(c *gin.Context) {
	h.threadSocket(c, types.SenderUser)
}

// GET /api/admin/chat/threads/:id/ws?after_seq=N
func (h *RealtimeHandler) AdminThreadSocket(c *gin.Context) {
	h.threadSocket(c, types.SenderAdmin)
}

// GET /api/admin/chat/ws streams queue-level frames for every thread.
func (h *RealtimeHandler) AdminQueueSocket(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	conn := realtime.NewConnection(ws, rd.UserID, rd.Role, h.log)
	h.serve(conn, []string{realtime.AdminRoom}, realtime.Frame{Type: realtime.FrameHello}, func(f realtime.ClientFrame) {
		_ = conn.SendFrame(realtime.ErrorFrame("unsupported_frame", nil))
	})
}

func (h *RealtimeHandler) threadSocket(c *gin.Context, role types.SenderRole) {
	threadID, err := threadIDParam(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var afterSeq int64 = -1
	if v := strings.TrimSpace(c.Query("after_seq")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
			return
		}
		afterSeq = n
	}

	// Access is checked before the upgrade so failures are plain HTTP errors.
	ctx := c.Request.Context()
	dbc := dbctx.Context{Ctx: ctx}
	thread, err := h.chat.GetThread(dbc, threadID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	var backlog []*types.ChatMessage
	if afterSeq >= 0 {
		if backlog, err = h.chat.ListMessagesSince(dbc, threadID, afterSeq, 0); err != nil {
			response.RespondServiceError(c, err)
			return
		}
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	rd := ctxutil.GetRequestData(ctx)
	conn := realtime.NewConnection(ws, rd.UserID, rd.Role, h.log.With("thread_id", threadID))

	hello := realtime.Frame{Type: realtime.FrameHello, Data: gin.H{"thread": thread}}
	h.serve(conn, []string{realtime.ThreadRoom(threadID)}, hello, func(f realtime.ClientFrame) {
		if f.Type != realtime.FrameMessage {
			_ = conn.SendFrame(realtime.ErrorFrame("unsupported_frame", nil))
			return
		}
		msg, _, err := h.chat.PostMessage(dbc, threadID, role, f.Text, f.ClientID)
		if err != nil {
			ae := apierr.FromError(err)
			_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameError, Data: realtime.ErrorData{Code: ae.Code, Error: ae.Message()}})
			return
		}
		_ = conn.SendFrame(realtime.Frame{Type: realtime.FrameAck, Data: realtime.AckData{ClientID: f.ClientID, MessageID: msg.ID, Seq: msg.Seq}})
	}, backlogFrames(backlog)...)
}

// serve owns conn until the peer disconnects.
func (h *RealtimeHandler) serve(conn *realtime.Connection, rooms []string, hello realtime.Frame, onFrame func(realtime.ClientFrame), backlog ...realtime.Frame) {
	h.metrics.RealtimeConnected()
	defer h.metrics.RealtimeDisconnected()

	// hello is queued before joining so it is always first, and the write loop
	// starts after joining so a client that has read hello is subscribed.
	_ = conn.SendFrame(hello)
	for _, room := range rooms {
		h.hub.Join(room, conn)
	}
	defer h.hub.LeaveAll(conn)
	conn.Start()

	for _, f := range backlog {
		_ = conn.SendFrame(f)
	}

	if err := conn.ReadLoop(onFrame); err != nil {
		h.log.Debug("websocket closed", "conn_id", conn.ID(), "user_id", conn.UserID, "error", err)
	}
	conn.Close(websocket.CloseNormalClosure, "")
}

func backlogFrames(msgs []*types.ChatMessage) []realtime.Frame {
	out := make([]realtime.Frame, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, realtime.Frame{Type: realtime.FrameMessage, Data: gin.H{"message": m}})
	}
	return out
}
