package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/supportchat-backend/internal/data/db"
	"github.com/yungbote/supportchat-backend/internal/data/repos/chat"
	"github.com/yungbote/supportchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/supportchat-backend/internal/domain"
	domainchat "github.com/yungbote/supportchat-backend/internal/domain/chat"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
)

func TestThreadCreateIfAbsentIsUniquePerContext(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := chat.NewChatThreadRepo(gdb, testutil.Logger(t))

	contextID := uuid.NewString()
	first := domainchat.NewThread(types.ContextJob, contextID, nil, time.Now())
	created, err := repo.CreateIfAbsent(dbc, first)
	require.NoError(t, err)
	require.True(t, created)

	second := domainchat.NewThread(types.ContextJob, contextID, nil, time.Now())
	created, err = repo.CreateIfAbsent(dbc, second)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByContext(dbc, types.ContextJob, contextID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	other, err := repo.GetByContext(dbc, types.ContextRequest, contextID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestThreadListQueue(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := chat.NewChatThreadRepo(gdb, testutil.Logger(t))

	now := time.Now()
	admin := uuid.New()
	aiThread := domainchat.NewThread(types.ContextJob, uuid.NewString(), nil, now)
	pending := domainchat.NewThread(types.ContextJob, uuid.NewString(), nil, now)
	pending.RequestAdmin("help", now.Add(time.Second))
	served := domainchat.NewThread(types.ContextRequest, uuid.NewString(), nil, now)
	served.RequestAdmin("", now)
	served.TakeOver(admin, now.Add(2*time.Second))

	_, err := repo.Create(dbc, []*types.ChatThread{aiThread, pending, served})
	require.NoError(t, err)

	ids := func(rows []*types.ChatThread) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	rows, err := repo.List(dbc, chat.ThreadListQuery{Queue: domainchat.QueuePending})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pending.ID}, ids(rows))

	rows, err = repo.List(dbc, chat.ThreadListQuery{Queue: domainchat.QueueAdmin})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{served.ID, pending.ID}, ids(rows))

	rows, err = repo.List(dbc, chat.ThreadListQuery{Queue: domainchat.QueueServed, AssignedTo: &admin})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{served.ID}, ids(rows))

	rows, err = repo.List(dbc, chat.ThreadListQuery{Queue: domainchat.QueueAI})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{aiThread.ID}, ids(rows))
}

func TestThreadLockAndUpdateFields(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := chat.NewChatThreadRepo(gdb, testutil.Logger(t))

	th := domainchat.NewThread(types.ContextJob, uuid.NewString(), nil, time.Now())
	_, err := repo.Create(dbc, []*types.ChatThread{th})
	require.NoError(t, err)

	_, err = repo.LockByID(dbctx.Context{Ctx: context.Background()}, th.ID)
	require.Error(t, err)

	locked, err := repo.LockByID(dbc, th.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)

	admin := uuid.New()
	locked.TakeOver(admin, time.Now())
	require.NoError(t, repo.UpdateFields(dbc, th.ID, locked.HandoffColumns()))

	got, err := repo.GetByID(dbc, th.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateAdminServed, got.State())
	assert.Equal(t, int64(1), got.Version)

	locked.ReleaseToAI(nil, time.Now())
	require.NoError(t, repo.UpdateFields(dbc, th.ID, locked.HandoffColumns()))
	got, err = repo.GetByID(dbc, th.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedAdminUserID)
	assert.Equal(t, types.StateAIServed, got.State())

	missing, err := repo.GetByID(dbc, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMessagePagingAndClientIDUniqueness(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	messages := chat.NewChatMessageRepo(gdb, testutil.Logger(t))

	th := testutil.SeedThread(t, dbc.Ctx, tx, types.ContextJob)
	testutil.SeedMessages(t, dbc.Ctx, tx, th, 5)

	page, err := messages.ListPage(dbc, th.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].Seq)
	assert.Equal(t, int64(5), page[1].Seq)

	before := page[0].Seq
	page, err = messages.ListPage(dbc, th.ID, 10, &before)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(1), page[0].Seq)
	assert.Equal(t, int64(3), page[2].Seq)

	since, err := messages.ListSinceSeq(dbc, th.ID, 3, 10)
	require.NoError(t, err)
	require.Len(t, since, 2)

	got, err := messages.GetByClientID(dbc, th.ID, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.Seq)

	_, err = messages.Create(dbc, []*types.ChatMessage{{
		ID:         uuid.New(),
		ThreadID:   th.ID,
		Seq:        99,
		SenderRole: types.SenderUser,
		ClientID:   "c-1",
		Text:       "dup",
		CreatedAt:  time.Now(),
	}})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestParticipantEnsureAndMarkRead(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	threads := chat.NewChatThreadRepo(gdb, testutil.Logger(t))
	participants := chat.NewChatParticipantRepo(gdb, testutil.Logger(t))

	user := uuid.New()
	th := domainchat.NewThread(types.ContextRequest, uuid.NewString(), &user, time.Now())
	_, err := threads.Create(dbc, []*types.ChatThread{th})
	require.NoError(t, err)

	require.NoError(t, participants.Ensure(dbc, &types.ChatParticipant{ThreadID: th.ID, UserID: user, Role: types.ParticipantBuyer}))
	require.NoError(t, participants.Ensure(dbc, &types.ChatParticipant{ThreadID: th.ID, UserID: user, Role: types.ParticipantAdmin}))

	p, err := participants.Get(dbc, th.ID, user)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, types.ParticipantBuyer, p.Role)
	assert.Nil(t, p.LastReadAt)

	require.NoError(t, participants.MarkRead(dbc, th.ID, user, time.Now()))
	p, err = participants.Get(dbc, th.ID, user)
	require.NoError(t, err)
	assert.NotNil(t, p.LastReadAt)

	rows, err := threads.List(dbc, chat.ThreadListQuery{ParticipantID: &user, Queue: domainchat.QueueAll})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, th.ID, rows[0].ID)
}
