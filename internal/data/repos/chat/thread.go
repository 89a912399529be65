package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	"github.com/yungbote/supportchat-backend/internal/domain/chat"
	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

// ThreadListQuery drives both the end-user thread list and the admin queue.
type ThreadListQuery struct {
	// ParticipantID restricts to threads the user participates in.
	ParticipantID *uuid.UUID
	ContextType   types.ContextType
	ContextID     string
	Queue         types.QueueFilter
	AssignedTo    *uuid.UUID
	Limit         int
}

type ChatThreadRepo interface {
	Create(dbc dbctx.Context, rows []*types.ChatThread) ([]*types.ChatThread, error)
	// CreateIfAbsent inserts row unless a thread already owns its context key.
	CreateIfAbsent(dbc dbctx.Context, row *types.ChatThread) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error)
	GetByContext(dbc dbctx.Context, contextType types.ContextType, contextID string) (*types.ChatThread, error)
	List(dbc dbctx.Context, q ThreadListQuery) ([]*types.ChatThread, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type chatThreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatThreadRepo(db *gorm.DB, log *logger.Logger) ChatThreadRepo {
	return &chatThreadRepo{db: db, log: log.With("repo", "ChatThreadRepo")}
}

func (r *chatThreadRepo) Create(dbc dbctx.Context, rows []*types.ChatThread) ([]*types.ChatThread, error) {
	if len(rows) == 0 {
		return []*types.ChatThread{}, nil
	}
	txx := dbc.DB(r.db)
	if err := txx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatThreadRepo) CreateIfAbsent(dbc dbctx.Context, row *types.ChatThread) (bool, error) {
	if row == nil {
		return false, fmt.Errorf("missing row")
	}
	txx := dbc.DB(r.db)
	res := txx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "context_type"}, {Name: "context_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *chatThreadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.DB(r.db)
	var out types.ChatThread
	err := txx.
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatThreadRepo) GetByContext(dbc dbctx.Context, contextType types.ContextType, contextID string) (*types.ChatThread, error) {
	contextID = strings.TrimSpace(contextID)
	if contextType == "" || contextID == "" {
		return nil, fmt.Errorf("missing context key")
	}
	txx := dbc.DB(r.db)
	var out types.ChatThread
	err := txx.
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatThreadRepo) List(dbc dbctx.Context, q ThreadListQuery) ([]*types.ChatThread, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	txx := dbc.DB(r.db)
	query := txx.Model(&types.ChatThread{})
	if q.ParticipantID != nil {
		query = query.Where(
			"id IN (?)",
			txx.Model(&types.ChatParticipant{}).Select("thread_id").Where("user_id = ?", *q.ParticipantID),
		)
	}
	if q.ContextType != "" {
		query = query.Where("context_type = ?", q.ContextType)
	}
	if q.ContextID != "" {
		query = query.Where("context_id = ?", q.ContextID)
	}
	switch q.Queue {
	case chat.QueuePending:
		query = query.Where("handoff_mode = ? AND assigned_admin_user_id IS NULL", types.HandoffModeAdmin)
	case chat.QueueServed:
		query = query.Where("handoff_mode = ? AND assigned_admin_user_id IS NOT NULL", types.HandoffModeAdmin)
	case chat.QueueAdmin:
		query = query.Where("handoff_mode = ?", types.HandoffModeAdmin)
	case chat.QueueAI:
		query = query.Where("handoff_mode = ?", types.HandoffModeAI)
	}
	if q.AssignedTo != nil {
		query = query.Where("assigned_admin_user_id = ?", *q.AssignedTo)
	}
	var out []*types.ChatThread
	if err := query.
		Order("updated_at DESC").
		Limit(q.Limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatThreadRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out types.ChatThread
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFields writes updates; callers that track updated_at themselves pass it in.
func (r *chatThreadRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	txx := dbc.DB(r.db)
	return txx.
		Model(&types.ChatThread{}).
		Where("id = ?", id).
		Updates(updates).Error
}
