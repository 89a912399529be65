package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/services"
)

// Responder drains the Queue with a fixed pool of workers and posts AI replies.
type Responder struct {
	queue   *Queue
	chat    services.ChatService
	router  *Router
	persona Persona
	log     *logger.Logger
	metrics *observability.Metrics

	workers int
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewResponder(
	queue *Queue,
	chat services.ChatService,
	router *Router,
	persona Persona,
	log *logger.Logger,
	metrics *observability.Metrics,
	workers int,
	timeout time.Duration,
) *Responder {
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Responder{
		queue:   queue,
		chat:    chat,
		router:  router,
		persona: persona,
		log:     log.With("component", "Responder"),
		metrics: metrics,
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the workers; they exit when ctx is cancelled.
func (r *Responder) Start(ctx context.Context) {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-r.queue.ch:
					r.handle(ctx, j)
				}
			}
		}()
	}
}

// Wait blocks until every worker has returned.
func (r *Responder) Wait() { r.wg.Wait() }

func (r *Responder) handle(parent context.Context, j job) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()
	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: systemUserID, Role: ctxutil.RoleSystem})
	dbc := dbctx.Context{Ctx: ctx}
	log := r.log.With("thread_id", j.threadID, "message_id", j.messageID)

	th, err := r.chat.GetThread(dbc, j.threadID)
	if err != nil {
		log.Warn("assistant: load thread failed", "error", err)
		return
	}
	if th.HandoffMode != types.HandoffModeAI {
		return
	}

	rows, err := r.chat.ListMessages(dbc, j.threadID, r.persona.HistoryLimit, nil)
	if err != nil {
		log.Warn("assistant: load history failed", "error", err)
		return
	}
	history := make([]Turn, 0, len(rows))
	for _, m := range rows {
		history = append(history, Turn{Role: m.SenderRole, Text: m.Text})
	}

	provider := r.router.Resolve(th.AIProvider)
	start := time.Now()
	spanCtx, span := observability.StartSpan(ctx, "assistant.reply",
		attribute.String("thread_id", j.threadID.String()),
		attribute.String("ai_provider", provider.Name()),
	)
	reply, err := provider.Reply(spanCtx, r.persona, history)
	observability.EndSpan(span, err)
	if err != nil {
		r.metrics.ObserveAssistantReply(provider.Name(), "error", time.Since(start))
		log.Error("assistant: provider failed", "ai_provider", provider.Name(), "error", err)
		return
	}
	r.metrics.ObserveAssistantReply(provider.Name(), "ok", time.Since(start))

	msg, err := r.chat.AppendAssistantReply(dbc, j.threadID, j.messageID, reply.Text, reply.Provider, reply.Model)
	if err != nil {
		log.Error("assistant: append reply failed", "error", err)
		return
	}
	if msg == nil {
		log.Debug("assistant: thread left ai mode, reply discarded")
	}
}

// systemUserID identifies the service itself in request data.
var systemUserID = uuid.MustParse("00000000-0000-0000-0000-00000000a1a1")
