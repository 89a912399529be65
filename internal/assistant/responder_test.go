package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yungbote/supportchat-backend/internal/data/repos"
	"github.com/yungbote/supportchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/services"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "openai" }

func (failingProvider) Reply(context.Context, Persona, []Turn) (Reply, error) {
	return Reply{}, errors.New("boom")
}

func newChat(t *testing.T, q *Queue) services.ChatService {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	return services.NewChatService(
		gdb, log, nil, nil,
		repos.NewChatThreadRepo(gdb, log),
		repos.NewChatMessageRepo(gdb, log),
		repos.NewChatParticipantRepo(gdb, log),
		nil, nil, q,
	)
}

func buyerCtx(id uuid.UUID) dbctx.Context {
	return dbctx.Context{Ctx: ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: id, Role: ctxutil.RoleUser})}
}

func TestResponderPostsReplyInAIMode(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	log := testutil.Logger(t)
	q := NewQueue(8, log)
	chat := newChat(t, q)
	router := NewRouter(StaticProvider{}, namedProvider("openai"))
	r := NewResponder(q, chat, router, DefaultPersona(), log, nil, 2, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	defer func() {
		cancel()
		r.Wait()
	}()

	buyer := uuid.New()
	th, _, err := chat.CreateOrGetThread(buyerCtx(buyer), "job", "resp-1")
	require.NoError(t, err)
	_, _, err = chat.PostMessage(buyerCtx(buyer), th.ID, types.SenderUser, "hello?", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs, err := chat.ListMessages(buyerCtx(buyer), th.ID, 10, nil)
		return err == nil && len(msgs) == 2
	}, 5*time.Second, 20*time.Millisecond)

	msgs, err := chat.ListMessages(buyerCtx(buyer), th.ID, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, types.SenderAssistant, msgs[1].SenderRole)
	assert.Equal(t, "from openai", msgs[1].Text)
	assert.Equal(t, int64(2), msgs[1].Seq)
}

func TestResponderFailureLeavesLogUntouched(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	log := testutil.Logger(t)
	q := NewQueue(8, log)
	chat := newChat(t, q)
	r := NewResponder(q, chat, NewRouter(StaticProvider{}, failingProvider{}), DefaultPersona(), log, nil, 1, time.Second)

	buyer := uuid.New()
	th, _, err := chat.CreateOrGetThread(buyerCtx(buyer), "job", "resp-2")
	require.NoError(t, err)
	_, _, err = chat.PostMessage(buyerCtx(buyer), th.ID, types.SenderUser, "hello?", "")
	require.NoError(t, err)
	require.Equal(t, 1, q.Len())

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	require.Eventually(t, func() bool { return q.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	r.Wait()

	msgs, err := chat.ListMessages(buyerCtx(buyer), th.ID, 10, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1, testutil.Logger(t))
	q.ScheduleReply(uuid.New(), uuid.New())
	q.ScheduleReply(uuid.New(), uuid.New())
	assert.Equal(t, 1, q.Len())
}
