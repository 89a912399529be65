package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

type ChatParticipantRepo interface {
	// Ensure inserts the participant row if missing; an existing role is kept.
	Ensure(dbc dbctx.Context, row *types.ChatParticipant) error
	Get(dbc dbctx.Context, threadID, userID uuid.UUID) (*types.ChatParticipant, error)
	MarkRead(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) error
}

type chatParticipantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatParticipantRepo(db *gorm.DB, log *logger.Logger) ChatParticipantRepo {
	return &chatParticipantRepo{db: db, log: log.With("repo", "ChatParticipantRepo")}
}

func (r *chatParticipantRepo) Ensure(dbc dbctx.Context, row *types.ChatParticipant) error {
	if row == nil || row.ThreadID == uuid.Nil || row.UserID == uuid.Nil {
		return fmt.Errorf("missing participant key")
	}
	if row.JoinedAt.IsZero() {
		row.JoinedAt = time.Now().UTC()
	}
	txx := dbc.DB(r.db)
	return txx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *chatParticipantRepo) Get(dbc dbctx.Context, threadID, userID uuid.UUID) (*types.ChatParticipant, error) {
	txx := dbc.DB(r.db)
	var out types.ChatParticipant
	err := txx.
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatParticipantRepo) MarkRead(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) error {
	txx := dbc.DB(r.db)
	return txx.
		Model(&types.ChatParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Update("last_read_at", at.UTC()).Error
}
