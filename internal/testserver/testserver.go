// Package testserver runs the full HTTP API over an in-memory SQLite database
// for client-side tests.
package testserver

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/data/repos"
	"github.com/yungbote/supportchat-backend/internal/data/repos/testutil"
	apihttp "github.com/yungbote/supportchat-backend/internal/http"
	httpH "github.com/yungbote/supportchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/supportchat-backend/internal/http/middleware"
	"github.com/yungbote/supportchat-backend/internal/realtime"
	"github.com/yungbote/supportchat-backend/internal/services"
)

const Secret = "testserver-secret"

type Server struct {
	URL  string
	Chat services.ChatService
	tb   testing.TB
}

func New(tb testing.TB) *Server {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.DB(tb)
	log := testutil.Logger(tb)
	hub := realtime.NewHub(log, nil)

	chat := services.NewChatService(
		gdb, log, nil, nil,
		repos.NewChatThreadRepo(gdb, log),
		repos.NewChatMessageRepo(gdb, log),
		repos.NewChatParticipantRepo(gdb, log),
		services.NewChatNotifier(&services.HubEmitter{Hub: hub}),
		nil, nil,
	)
	auth := services.NewAuthService(log, Secret, time.Hour)

	r := apihttp.NewRouter(apihttp.RouterConfig{
		Log:              log,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, auth),
		ChatHandler:      httpH.NewChatHandler(chat),
		AdminChatHandler: httpH.NewAdminChatHandler(chat),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, chat, hub, nil, nil),
		HealthHandler:    httpH.NewHealthHandler(gdb),
	})
	srv := httptest.NewServer(r)
	tb.Cleanup(srv.Close)
	return &Server{URL: srv.URL, Chat: chat, tb: tb}
}

// Token mints a bearer token for a fresh identity unless userID is given.
func (s *Server) Token(role string, userID ...uuid.UUID) (string, uuid.UUID) {
	s.tb.Helper()
	id := uuid.New()
	if len(userID) > 0 {
		id = userID[0]
	}
	tok, err := services.MintToken(Secret, id, role, time.Hour)
	if err != nil {
		s.tb.Fatalf("mint token: %v", err)
	}
	return tok, id
}
