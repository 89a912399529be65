package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/supportchat-backend/internal/data/db"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
	"github.com/yungbote/supportchat-backend/internal/pkg/pointers"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
)

const eventPublishTimeout = 5 * time.Second

// transitionFunc mutates a locked thread and reports whether anything changed.
type transitionFunc func(inner dbctx.Context, th *types.ChatThread, now time.Time) (bool, error)

func (s *chatService) RequestAdminHandoff(dbc dbctx.Context, threadID uuid.UUID, note string) (*types.ChatThread, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, domainerrors.Unauthorized("not authenticated")
	}
	th, changed, err := s.transition(dbc, threadID, func(inner dbctx.Context, th *types.ChatThread, now time.Time) (bool, error) {
		if err := s.authorize(inner, th, rd); err != nil {
			return false, err
		}
		return th.RequestAdmin(note, now), nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return th, nil
	}

	s.log.Info("Admin handoff requested", "thread_id", th.ID, "user_id", rd.UserID)
	s.metrics.IncHandoffTransition("request_admin")
	s.notify.HandoffRequested(th)
	s.publishHandoff(dbc.Ctx, events.KeyHandoffRequested, th, th.HandoffNote)
	return th, nil
}

func (s *chatService) AdminTakeOverThread(dbc dbctx.Context, threadID uuid.UUID, adminUserID *uuid.UUID, expectedVersion *int64) (*types.ChatThread, error) {
	rd, err := requireAdmin(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	assignee := rd.UserID
	if adminUserID != nil && *adminUserID != uuid.Nil {
		assignee = *adminUserID
	}

	th, _, err := s.transition(dbc, threadID, func(inner dbctx.Context, th *types.ChatThread, now time.Time) (bool, error) {
		if expectedVersion != nil && *expectedVersion != th.Version {
			return false, domainerrors.Conflict("thread changed since it was read")
		}
		th.TakeOver(assignee, now)
		err := s.participants.Ensure(inner, &types.ChatParticipant{
			ThreadID: th.ID,
			UserID:   assignee,
			Role:     types.ParticipantAdmin,
			JoinedAt: now.UTC(),
		})
		return true, err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Thread taken over", "thread_id", th.ID, "user_id", assignee, "version", th.Version)
	s.metrics.IncHandoffTransition("takeover")
	s.notify.ThreadUpdated(th)
	s.publishHandoff(dbc.Ctx, events.KeyThreadAssigned, th, "")
	return th, nil
}

func (s *chatService) AdminReleaseToAI(dbc dbctx.Context, threadID uuid.UUID, provider *string) (*types.ChatThread, error) {
	if _, err := requireAdmin(dbc.Ctx); err != nil {
		return nil, err
	}
	var pref *types.AIProvider
	if raw := pointers.Deref(provider); raw != "" {
		p, err := types.ParseAIProvider(raw)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		pref = pointers.Ptr(p)
	}

	th, _, err := s.transition(dbc, threadID, func(_ dbctx.Context, th *types.ChatThread, now time.Time) (bool, error) {
		th.ReleaseToAI(pref, now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Thread released to AI", "thread_id", th.ID, "ai_provider", th.AIProvider)
	s.metrics.IncHandoffTransition("release_to_ai")
	s.notify.ThreadUpdated(th)
	s.publishHandoff(dbc.Ctx, events.KeyThreadReleased, th, "")
	return th, nil
}

func (s *chatService) AdminSetAIProvider(dbc dbctx.Context, threadID uuid.UUID, provider string) (*types.ChatThread, error) {
	if _, err := requireAdmin(dbc.Ctx); err != nil {
		return nil, err
	}
	p, err := types.ParseAIProvider(provider)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	th, _, err := s.transition(dbc, threadID, func(_ dbctx.Context, th *types.ChatThread, now time.Time) (bool, error) {
		th.SetAIProvider(p, now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncHandoffTransition("set_provider")
	s.notify.ThreadUpdated(th)
	return th, nil
}

// transition locks the thread row, applies fn and persists the handoff columns.
func (s *chatService) transition(dbc dbctx.Context, threadID uuid.UUID, fn transitionFunc) (*types.ChatThread, bool, error) {
	if threadID == uuid.Nil {
		return nil, false, domainerrors.Validation("missing thread id")
	}
	ctx, span := observability.StartSpan(dbc.Ctx, "chat.transition", attribute.String("thread_id", threadID.String()))
	dbc.Ctx = ctx
	var (
		out     *types.ChatThread
		changed bool
	)
	err := db.Transact(dbc, s.db, func(inner dbctx.Context) error {
		out, changed = nil, false
		th, err := s.threads.LockByID(inner, threadID)
		if err != nil {
			return err
		}
		if th == nil {
			return domainerrors.NotFound("thread not found")
		}
		ok, err := fn(inner, th, s.clock.Now())
		if err != nil {
			return err
		}
		out, changed = th, ok
		if !ok {
			return nil
		}
		return s.threads.UpdateFields(inner, th.ID, th.HandoffColumns())
	})
	if err != nil {
		observability.EndSpan(span, err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("changed", changed), attribute.String("state", string(out.State())))
	observability.EndSpan(span, nil)
	return out, changed, nil
}

func (s *chatService) publishHandoff(ctx context.Context, key string, th *types.ChatThread, note string) {
	payload := events.HandoffV1{
		ThreadID:            th.ID,
		ContextType:         string(th.ContextType),
		ContextID:           th.ContextID,
		State:               string(th.State()),
		AIProvider:          string(th.AIProvider),
		AssignedAdminUserID: th.AssignedAdminUserID,
		Note:                note,
		Version:             th.Version,
		At:                  th.UpdatedAt,
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		actor := rd.UserID
		payload.ActorUserID = &actor
	}
	correlationID := ""
	if td := ctxutil.GetTraceData(ctx); td != nil {
		correlationID = td.RequestID
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := s.events.Publish(pubCtx, key, events.NewEnvelope(key, payload, correlationID)); err != nil {
		s.metrics.IncEventPublished(key, "error")
		s.log.Warn("Handoff event publish failed", "key", key, "thread_id", th.ID, "error", err)
		return
	}
	s.metrics.IncEventPublished(key, "ok")
}
