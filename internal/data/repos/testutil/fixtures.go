package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/supportchat-backend/internal/domain"
)

// SeedThread inserts a fresh ai-served thread; mutate runs before the insert.
func SeedThread(tb testing.TB, ctx context.Context, tx *gorm.DB, contextType types.ContextType, mutate ...func(*types.ChatThread)) *types.ChatThread {
	tb.Helper()
	th := types.NewThread(contextType, uuid.NewString(), nil, time.Now())
	for _, m := range mutate {
		m(th)
	}
	if err := tx.WithContext(ctx).Create(th).Error; err != nil {
		tb.Fatalf("seed thread: %v", err)
	}
	return th
}

// SeedMessages appends n user messages with client ids c-0..c-(n-1) and
// persists the advanced thread counters.
func SeedMessages(tb testing.TB, ctx context.Context, tx *gorm.DB, th *types.ChatThread, n int) []*types.ChatMessage {
	tb.Helper()
	out := make([]*types.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		seq, at := th.AdvanceForMessage(time.Now())
		msg := &types.ChatMessage{
			ID:         uuid.New(),
			ThreadID:   th.ID,
			Seq:        seq,
			SenderRole: types.SenderUser,
			ClientID:   fmt.Sprintf("c-%d", i),
			Text:       fmt.Sprintf("message %d", seq),
			CreatedAt:  at,
		}
		if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
			tb.Fatalf("seed message: %v", err)
		}
		out = append(out, msg)
	}
	err := tx.WithContext(ctx).Model(&types.ChatThread{}).Where("id = ?", th.ID).Updates(map[string]interface{}{
		"next_seq":        th.NextSeq,
		"last_message_at": th.LastMessageAt,
		"updated_at":      th.UpdatedAt,
	}).Error
	if err != nil {
		tb.Fatalf("seed message counters: %v", err)
	}
	return out
}
