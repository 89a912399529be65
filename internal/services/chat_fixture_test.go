package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/data/repos"
	"github.com/yungbote/supportchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
)

type chatFixture struct {
	svc     ChatService
	clock   *clock.Mock
	notify  *recordingNotifier
	events  *recordingPublisher
	replies *recordingScheduler
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	f := &chatFixture{
		clock:   clk,
		notify:  &recordingNotifier{},
		events:  &recordingPublisher{},
		replies: &recordingScheduler{},
	}
	f.svc = NewChatService(
		gdb, log, clk, nil,
		repos.NewChatThreadRepo(gdb, log),
		repos.NewChatMessageRepo(gdb, log),
		repos.NewChatParticipantRepo(gdb, log),
		f.notify, f.events, f.replies,
	)
	return f
}

func asUser(userID uuid.UUID) dbctx.Context {
	return asRole(userID, ctxutil.RoleUser)
}

func asAdmin(userID uuid.UUID) dbctx.Context {
	return asRole(userID, ctxutil.RoleAdmin)
}

func asSystem() dbctx.Context {
	return asRole(uuid.New(), ctxutil.RoleSystem)
}

func asRole(userID uuid.UUID, role string) dbctx.Context {
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, Role: role})
	return dbctx.Context{Ctx: ctx}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind)
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) ThreadUpdated(*types.ChatThread)    { n.record("thread_updated") }
func (n *recordingNotifier) HandoffRequested(*types.ChatThread) { n.record("handoff_requested") }
func (n *recordingNotifier) MessageCreated(*types.ChatThread, *types.ChatMessage) {
	n.record("message")
}
func (n *recordingNotifier) AIMeta(uuid.UUID, uuid.UUID, string, string) { n.record("ai_meta") }

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	last events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, key string, msg events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.last = msg
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingScheduler struct {
	mu       sync.Mutex
	messages []uuid.UUID
}

func (s *recordingScheduler) ScheduleReply(_ uuid.UUID, messageID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messageID)
}

func (s *recordingScheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
