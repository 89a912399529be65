package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/supportchat-backend/internal/data/db"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

const catchUpLimit = 300

// newMessage describes one append under the thread lock.
type newMessage struct {
	role     types.SenderRole
	senderID *uuid.UUID
	text     string
	clientID string
	metadata map[string]any
}

func (s *chatService) PostMessage(dbc dbctx.Context, threadID uuid.UUID, senderRole types.SenderRole, text string, clientID string) (*types.ChatMessage, bool, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, false, domainerrors.Unauthorized("not authenticated")
	}
	text, clientID, err := normalizeMessageInput(text, clientID)
	if err != nil {
		return nil, false, err
	}
	switch senderRole {
	case types.SenderUser:
	case types.SenderAdmin:
		if !rd.IsAdmin() {
			return nil, false, domainerrors.Forbidden("admin role required")
		}
	default:
		return nil, false, domainerrors.Validation(fmt.Sprintf("sender_role %q cannot be posted", senderRole))
	}

	if _, err := s.loadAuthorized(dbc, threadID); err != nil {
		return nil, false, err
	}

	// Fast-path idempotency (no lock): a retried send returns the stored message.
	if existing, err := s.messages.GetByClientID(s.repoCtx(dbc), threadID, clientID); err != nil {
		return nil, false, err
	} else if existing != nil {
		s.metrics.IncMessageDeduped()
		return existing, false, nil
	}

	sender := rd.UserID
	msg, th, created, err := s.appendMessage(dbc, threadID, nil, newMessage{
		role:     senderRole,
		senderID: &sender,
		text:     text,
		clientID: clientID,
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.metrics.IncMessageDeduped()
		return msg, false, nil
	}

	s.metrics.IncMessagePosted(string(senderRole))
	s.notify.MessageCreated(th, msg)
	if senderRole == types.SenderUser && th.HandoffMode == types.HandoffModeAI && s.replies != nil {
		s.replies.ScheduleReply(th.ID, msg.ID)
	}
	return msg, true, nil
}

func (s *chatService) AppendAssistantReply(dbc dbctx.Context, threadID uuid.UUID, replyTo uuid.UUID, text string, provider string, model string) (*types.ChatMessage, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.Role != ctxutil.RoleSystem {
		return nil, domainerrors.Forbidden("assistant replies are posted by the service only")
	}
	text, clientID, err := normalizeMessageInput(text, "assistant:"+replyTo.String())
	if err != nil {
		return nil, err
	}

	stillAI := func(th *types.ChatThread) bool { return th.HandoffMode == types.HandoffModeAI }
	msg, th, created, err := s.appendMessage(dbc, threadID, stillAI, newMessage{
		role:     types.SenderAssistant,
		text:     text,
		clientID: clientID,
		metadata: map[string]any{"provider": provider, "model": model, "reply_to": replyTo},
	})
	if err != nil || msg == nil {
		return nil, err
	}
	if created {
		s.metrics.IncMessagePosted(string(types.SenderAssistant))
		s.notify.MessageCreated(th, msg)
		s.notify.AIMeta(th.ID, msg.ID, provider, model)
	}
	return msg, nil
}

func (s *chatService) ListMessages(dbc dbctx.Context, threadID uuid.UUID, limit int, beforeSeq *int64) ([]*types.ChatMessage, error) {
	if _, err := s.loadAuthorized(dbc, threadID); err != nil {
		return nil, err
	}
	if beforeSeq != nil && *beforeSeq <= 1 {
		return []*types.ChatMessage{}, nil
	}
	return s.messages.ListPage(s.repoCtx(dbc), threadID, clampLimit(limit), beforeSeq)
}

// ListMessagesSince returns messages with seq > afterSeq, oldest first.
// limit <= 0 means the catch-up maximum.
func (s *chatService) ListMessagesSince(dbc dbctx.Context, threadID uuid.UUID, afterSeq int64, limit int) ([]*types.ChatMessage, error) {
	if _, err := s.loadAuthorized(dbc, threadID); err != nil {
		return nil, err
	}
	if afterSeq < 0 {
		afterSeq = 0
	}
	if limit <= 0 || limit > catchUpLimit {
		limit = catchUpLimit
	}
	return s.messages.ListSinceSeq(s.repoCtx(dbc), threadID, afterSeq, limit)
}

// appendMessage allocates seq under the thread row lock and inserts the message.
// guard may veto the append after the lock is taken; the message is then nil.
func (s *chatService) appendMessage(dbc dbctx.Context, threadID uuid.UUID, guard func(*types.ChatThread) bool, in newMessage) (*types.ChatMessage, *types.ChatThread, bool, error) {
	var (
		msg     *types.ChatMessage
		thread  *types.ChatThread
		created bool
	)
	err := db.Transact(dbc, s.db, func(inner dbctx.Context) error {
		msg, thread, created = nil, nil, false
		th, err := s.threads.LockByID(inner, threadID)
		if err != nil {
			return err
		}
		if th == nil {
			return domainerrors.NotFound("thread not found")
		}
		thread = th
		if guard != nil && !guard(th) {
			return nil
		}

		// Re-check inside the lock so concurrent retries collapse onto one row.
		if in.clientID != "" {
			existing, err := s.messages.GetByClientID(inner, threadID, in.clientID)
			if err != nil {
				return err
			}
			if existing != nil {
				msg = existing
				return nil
			}
		}

		seq, createdAt := th.AdvanceForMessage(s.clock.Now())
		meta, err := json.Marshal(orEmpty(in.metadata))
		if err != nil {
			return err
		}
		row := &types.ChatMessage{
			ID:           uuid.New(),
			ThreadID:     threadID,
			Seq:          seq,
			SenderUserID: in.senderID,
			SenderRole:   in.role,
			ClientID:     in.clientID,
			Text:         in.text,
			Metadata:     datatypes.JSON(meta),
			CreatedAt:    createdAt,
		}
		if _, err := s.messages.Create(inner, []*types.ChatMessage{row}); err != nil {
			return err
		}
		if err := s.threads.UpdateFields(inner, th.ID, map[string]interface{}{
			"next_seq":        th.NextSeq,
			"last_message_at": th.LastMessageAt,
			"updated_at":      th.UpdatedAt,
		}); err != nil {
			return err
		}
		if in.senderID != nil {
			role := types.ParticipantBuyer
			if in.role == types.SenderAdmin {
				role = types.ParticipantAdmin
			}
			if err := s.participants.Ensure(inner, &types.ChatParticipant{
				ThreadID: th.ID,
				UserID:   *in.senderID,
				Role:     role,
				JoinedAt: createdAt,
			}); err != nil {
				return err
			}
		}
		msg, created = row, true
		return nil
	})
	if err != nil {
		// A concurrent insert on another node won the (thread_id, client_id) index.
		if in.clientID != "" && db.IsUniqueViolation(err) {
			existing, getErr := s.messages.GetByClientID(s.repoCtx(dbc), threadID, in.clientID)
			if getErr == nil && existing != nil {
				return existing, thread, false, nil
			}
		}
		return nil, nil, false, err
	}
	return msg, thread, created, nil
}

func normalizeMessageInput(text, clientID string) (string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", domainerrors.Validation("text is required")
	}
	if utf8.RuneCountInString(text) > types.MaxMessageRunes {
		return "", "", domainerrors.Validation(fmt.Sprintf("text exceeds %d characters", types.MaxMessageRunes))
	}
	clientID = strings.TrimSpace(clientID)
	if len(clientID) > types.MaxClientIDBytes {
		return "", "", domainerrors.Validation(fmt.Sprintf("client_id exceeds %d bytes", types.MaxClientIDBytes))
	}
	return text, clientID, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
