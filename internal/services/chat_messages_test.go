package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
)

func TestPostMessageAssignsSequentialSeq(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "seq")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}

	var prev *types.ChatMessage
	for i := 1; i <= 3; i++ {
		msg, created, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "  hello  ", "")
		if err != nil {
			t.Fatalf("PostMessage %d: %v", i, err)
		}
		if !created {
			t.Fatalf("message %d should be created", i)
		}
		if msg.Seq != int64(i) {
			t.Fatalf("seq: want=%d got=%d", i, msg.Seq)
		}
		if msg.Text != "hello" {
			t.Fatalf("text should be trimmed: %q", msg.Text)
		}
		if prev != nil && msg.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("created_at must not go backwards")
		}
		prev = msg
	}

	got, err := f.svc.GetThread(asUser(buyer), th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.NextSeq != 3 || !got.UpdatedAt.After(th.UpdatedAt) {
		t.Fatalf("thread not advanced: next_seq=%d", got.NextSeq)
	}
}

func TestPostMessageCreatedAtFollowsSeqWhenClockGoesBack(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "skew")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	first, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "one", "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	f.clock.Set(f.clock.Now().Add(-time.Minute))
	second, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "two", "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if second.CreatedAt.Before(first.CreatedAt) {
		t.Fatalf("created_at %s precedes %s", second.CreatedAt, first.CreatedAt)
	}
}

func TestPostMessageClientIDIsIdempotent(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "dedupe")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}

	first, created, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "hi", "c-1")
	if err != nil || !created {
		t.Fatalf("first post: created=%v err=%v", created, err)
	}
	again, created, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "hi", "c-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if created || again.ID != first.ID {
		t.Fatalf("retry must return the stored message")
	}

	msgs, err := f.svc.ListMessages(asUser(buyer), th.ID, 0, nil)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages: want=1 got=%d", len(msgs))
	}
	if f.replies.len() != 1 {
		t.Fatalf("reply scheduled %d times, want once", f.replies.len())
	}
}

func TestPostMessageRejectsInvalidInputWithoutMutation(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "invalid")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}

	cases := []struct {
		name, text, clientID string
	}{
		{"blank", "   \n\t", ""},
		{"too long", strings.Repeat("x", types.MaxMessageRunes+1), ""},
		{"long client id", "ok", strings.Repeat("c", types.MaxClientIDBytes+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, tc.text, tc.clientID)
			if !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}

	got, err := f.svc.GetThread(asUser(buyer), th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.NextSeq != 0 || !got.UpdatedAt.Equal(th.UpdatedAt) {
		t.Fatalf("thread mutated by rejected posts")
	}
}

func TestPostMessageAccessAndRoles(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "roles")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if _, _, err := f.svc.PostMessage(asUser(uuid.New()), th.ID, types.SenderUser, "hi", ""); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("stranger: want forbidden, got %v", err)
	}
	if _, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderAdmin, "hi", ""); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("user as admin: want forbidden, got %v", err)
	}
	if _, _, err := f.svc.PostMessage(asAdmin(uuid.New()), th.ID, types.SenderAssistant, "hi", ""); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("assistant role: want validation, got %v", err)
	}
	if _, _, err := f.svc.PostMessage(asUser(buyer), uuid.New(), types.SenderUser, "hi", ""); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("missing thread: want not found, got %v", err)
	}

	msg, _, err := f.svc.PostMessage(asAdmin(uuid.New()), th.ID, types.SenderAdmin, "admin here", "")
	if err != nil {
		t.Fatalf("admin post: %v", err)
	}
	if msg.SenderRole != types.SenderAdmin {
		t.Fatalf("sender role: %s", msg.SenderRole)
	}
}

func TestRepliesOnlyScheduledInAIMode(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "ai-mode")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if _, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "question", ""); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if f.replies.len() != 1 {
		t.Fatalf("ai mode should schedule a reply")
	}

	if _, err := f.svc.RequestAdminHandoff(asUser(buyer), th.ID, ""); err != nil {
		t.Fatalf("RequestAdminHandoff: %v", err)
	}
	if _, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "anyone?", ""); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if f.replies.len() != 1 {
		t.Fatalf("admin mode must not schedule replies")
	}
	if f.notify.count("message") != 2 {
		t.Fatalf("message frames: want=2 got=%d", f.notify.count("message"))
	}
}

func TestAppendAssistantReply(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "assistant")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	question, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "how big is a tower?", "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if _, err := f.svc.AppendAssistantReply(asAdmin(uuid.New()), th.ID, question.ID, "x", "openai", "m"); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("non-system caller: want forbidden, got %v", err)
	}

	reply, err := f.svc.AppendAssistantReply(asSystem(), th.ID, question.ID, "quite big", "openai", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("AppendAssistantReply: %v", err)
	}
	if reply == nil || reply.SenderRole != types.SenderAssistant || reply.Seq != 2 || reply.SenderUserID != nil {
		t.Fatalf("reply: %+v", reply)
	}
	dup, err := f.svc.AppendAssistantReply(asSystem(), th.ID, question.ID, "quite big", "openai", "gpt-4o-mini")
	if err != nil || dup == nil || dup.ID != reply.ID {
		t.Fatalf("duplicate reply must collapse: %v", err)
	}
	if f.notify.count("ai_meta") != 1 {
		t.Fatalf("ai_meta frames: want=1 got=%d", f.notify.count("ai_meta"))
	}

	if _, err := f.svc.RequestAdminHandoff(asUser(buyer), th.ID, ""); err != nil {
		t.Fatalf("RequestAdminHandoff: %v", err)
	}
	late, err := f.svc.AppendAssistantReply(asSystem(), th.ID, uuid.New(), "too late", "openai", "m")
	if err != nil {
		t.Fatalf("AppendAssistantReply after handoff: %v", err)
	}
	if late != nil {
		t.Fatalf("reply must be dropped once an admin owns the thread")
	}
}

func TestListMessagesPagesBackwards(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "request", "pages")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, _, err := f.svc.PostMessage(asUser(buyer), th.ID, types.SenderUser, "m", ""); err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
	}

	latest, err := f.svc.ListMessages(asUser(buyer), th.ID, 2, nil)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(latest) != 2 || latest[0].Seq != 4 || latest[1].Seq != 5 {
		t.Fatalf("latest page: %v", seqs(latest))
	}

	before := latest[0].Seq
	older, err := f.svc.ListMessages(asUser(buyer), th.ID, 10, &before)
	if err != nil {
		t.Fatalf("ListMessages before: %v", err)
	}
	if got := seqs(older); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("older page: %v", got)
	}

	first := int64(1)
	none, err := f.svc.ListMessages(asUser(buyer), th.ID, 10, &first)
	if err != nil || len(none) != 0 {
		t.Fatalf("before_seq=1: %v %v", seqs(none), err)
	}

	since, err := f.svc.ListMessagesSince(asUser(buyer), th.ID, 3, 0)
	if err != nil {
		t.Fatalf("ListMessagesSince: %v", err)
	}
	if got := seqs(since); len(got) != 2 || got[0] != 4 {
		t.Fatalf("since: %v", got)
	}
}

func seqs(rows []*types.ChatMessage) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Seq)
	}
	return out
}
