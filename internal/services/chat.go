package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/data/db"
	"github.com/yungbote/supportchat-backend/internal/data/repos"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
)

const maxContextIDBytes = 200

// ThreadFilter narrows the caller's own thread list.
type ThreadFilter struct {
	ContextType string
	ContextID   string
	Limit       int
}

// QueueQuery drives the admin queue.
type QueueQuery struct {
	State        string
	AssignedToMe bool
	Limit        int
}

// ReplyScheduler is notified after a user message lands on a thread served by the AI.
type ReplyScheduler interface {
	ScheduleReply(threadID, messageID uuid.UUID)
}

type ChatService interface {
	// CreateOrGetThread returns the single thread for a context key, creating it on first use.
	CreateOrGetThread(dbc dbctx.Context, contextType string, contextID string) (*types.ChatThread, bool, error)
	GetThread(dbc dbctx.Context, threadID uuid.UUID) (*types.ChatThread, error)
	ListThreads(dbc dbctx.Context, filter ThreadFilter) ([]*types.ChatThread, error)
	ListQueue(dbc dbctx.Context, q QueueQuery) ([]*types.ChatThread, error)
	MarkRead(dbc dbctx.Context, threadID uuid.UUID) error

	RequestAdminHandoff(dbc dbctx.Context, threadID uuid.UUID, note string) (*types.ChatThread, error)
	// AdminTakeOverThread is last-writer-wins unless expectedVersion is given.
	AdminTakeOverThread(dbc dbctx.Context, threadID uuid.UUID, adminUserID *uuid.UUID, expectedVersion *int64) (*types.ChatThread, error)
	AdminReleaseToAI(dbc dbctx.Context, threadID uuid.UUID, provider *string) (*types.ChatThread, error)
	AdminSetAIProvider(dbc dbctx.Context, threadID uuid.UUID, provider string) (*types.ChatThread, error)

	// PostMessage appends to the log. The bool is false when clientID matched an existing message.
	PostMessage(dbc dbctx.Context, threadID uuid.UUID, senderRole types.SenderRole, text string, clientID string) (*types.ChatMessage, bool, error)
	ListMessages(dbc dbctx.Context, threadID uuid.UUID, limit int, beforeSeq *int64) ([]*types.ChatMessage, error)
	ListMessagesSince(dbc dbctx.Context, threadID uuid.UUID, afterSeq int64, limit int) ([]*types.ChatMessage, error)
	// AppendAssistantReply posts an AI reply unless the thread left ai mode; it then returns nil, nil.
	AppendAssistantReply(dbc dbctx.Context, threadID uuid.UUID, replyTo uuid.UUID, text string, provider string, model string) (*types.ChatMessage, error)
}

type chatService struct {
	db      *gorm.DB
	log     *logger.Logger
	clock   clock.Clock
	metrics *observability.Metrics

	threads      repos.ChatThreadRepo
	messages     repos.ChatMessageRepo
	participants repos.ChatParticipantRepo

	notify  ChatNotifier
	events  events.Publisher
	replies ReplyScheduler
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	clk clock.Clock,
	metrics *observability.Metrics,
	threadRepo repos.ChatThreadRepo,
	messageRepo repos.ChatMessageRepo,
	participantRepo repos.ChatParticipantRepo,
	notify ChatNotifier,
	publisher events.Publisher,
	replies ReplyScheduler,
) ChatService {
	if clk == nil {
		clk = clock.New()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if notify == nil {
		notify = NewChatNotifier(nil)
	}
	return &chatService{
		db:           db,
		log:          baseLog.With("service", "ChatService"),
		clock:        clk,
		metrics:      metrics,
		threads:      threadRepo,
		messages:     messageRepo,
		participants: participantRepo,
		notify:       notify,
		events:       publisher,
		replies:      replies,
	}
}

func (s *chatService) CreateOrGetThread(dbc dbctx.Context, contextType string, contextID string) (*types.ChatThread, bool, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, false, domainerrors.Unauthorized("not authenticated")
	}
	ct, err := types.ParseContextType(contextType)
	if err != nil {
		return nil, false, domainerrors.Validation(err.Error())
	}
	contextID = strings.TrimSpace(contextID)
	if contextID == "" {
		return nil, false, domainerrors.Validation("context_id is required")
	}
	if len(contextID) > maxContextIDBytes {
		return nil, false, domainerrors.Validation("context_id too long")
	}

	var (
		thread  *types.ChatThread
		created bool
	)
	err = db.Transact(dbc, s.db, func(inner dbctx.Context) error {
		now := s.clock.Now()

		creator := rd.UserID
		candidate := types.NewThread(ct, contextID, &creator, now)
		ok, err := s.threads.CreateIfAbsent(inner, candidate)
		if err != nil {
			return err
		}
		created = ok

		// Whoever won the insert, every caller reads the same row back.
		th, err := s.threads.GetByContext(inner, ct, contextID)
		if err != nil {
			return err
		}
		if th == nil {
			return fmt.Errorf("thread vanished after insert")
		}
		thread = th

		return s.participants.Ensure(inner, &types.ChatParticipant{
			ThreadID: th.ID,
			UserID:   rd.UserID,
			Role:     participantRoleFor(rd),
			JoinedAt: now.UTC(),
		})
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info("Chat thread created", "thread_id", thread.ID, "context_type", thread.ContextType, "user_id", rd.UserID)
		s.notify.ThreadUpdated(thread)
	}
	return thread, created, nil
}

func (s *chatService) GetThread(dbc dbctx.Context, threadID uuid.UUID) (*types.ChatThread, error) {
	return s.loadAuthorized(dbc, threadID)
}

func (s *chatService) ListThreads(dbc dbctx.Context, filter ThreadFilter) ([]*types.ChatThread, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	q := repos.ThreadListQuery{
		ParticipantID: &rd.UserID,
		ContextID:     strings.TrimSpace(filter.ContextID),
		Limit:         clampLimit(filter.Limit),
	}
	if strings.TrimSpace(filter.ContextType) != "" {
		ct, err := types.ParseContextType(filter.ContextType)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		q.ContextType = ct
	}
	return s.threads.List(s.repoCtx(dbc), q)
}

func (s *chatService) ListQueue(dbc dbctx.Context, q QueueQuery) ([]*types.ChatThread, error) {
	rd, err := requireAdmin(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	filter, err := types.ParseQueueFilter(q.State)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	lq := repos.ThreadListQuery{Queue: filter, Limit: clampLimit(q.Limit)}
	if q.AssignedToMe {
		lq.AssignedTo = &rd.UserID
	}
	return s.threads.List(s.repoCtx(dbc), lq)
}

func (s *chatService) MarkRead(dbc dbctx.Context, threadID uuid.UUID) error {
	th, err := s.loadAuthorized(dbc, threadID)
	if err != nil {
		return err
	}
	rd := ctxutil.GetRequestData(dbc.Ctx)
	repoCtx := s.repoCtx(dbc)
	now := s.clock.Now().UTC()
	if err := s.participants.Ensure(repoCtx, &types.ChatParticipant{
		ThreadID: th.ID,
		UserID:   rd.UserID,
		Role:     participantRoleFor(rd),
		JoinedAt: now,
	}); err != nil {
		return err
	}
	return s.participants.MarkRead(repoCtx, th.ID, rd.UserID, now)
}

// loadAuthorized returns the thread when the caller is a participant or privileged.
func (s *chatService) loadAuthorized(dbc dbctx.Context, threadID uuid.UUID) (*types.ChatThread, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	if threadID == uuid.Nil {
		return nil, domainerrors.Validation("missing thread id")
	}
	repoCtx := s.repoCtx(dbc)
	th, err := s.threads.GetByID(repoCtx, threadID)
	if err != nil {
		return nil, err
	}
	if th == nil {
		return nil, domainerrors.NotFound("thread not found")
	}
	if err := s.authorize(repoCtx, th, rd); err != nil {
		return nil, err
	}
	return th, nil
}

func (s *chatService) authorize(dbc dbctx.Context, th *types.ChatThread, rd *ctxutil.RequestData) error {
	if rd.IsPrivileged() {
		return nil
	}
	p, err := s.participants.Get(dbc, th.ID, rd.UserID)
	if err != nil {
		return err
	}
	if p == nil {
		return domainerrors.Forbidden("not a participant of this thread")
	}
	return nil
}

func (s *chatService) repoCtx(dbc dbctx.Context) dbctx.Context {
	return dbc.WithTx(dbc.DB(s.db))
}

func requireAdmin(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	if !rd.IsAdmin() {
		return nil, domainerrors.Forbidden("admin role required")
	}
	return rd, nil
}

func participantRoleFor(rd *ctxutil.RequestData) types.ParticipantRole {
	if rd.IsAdmin() {
		return types.ParticipantAdmin
	}
	return types.ParticipantBuyer
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
