// Package unread derives per-thread unread state from locally stored
// last-seen timestamps.
package unread

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/localstore"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

const keyPrefix = "supportchat:seen:"

// Key is the store key holding an operator's markers.
func Key(operator string) string {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		operator = "anonymous"
	}
	return keyPrefix + operator
}

// Tracker keeps {thread_id: last_seen_epoch_ms} for one operator. Storage
// failures never block the caller: a marker that cannot be read counts as
// missing and the thread shows as unread.
type Tracker struct {
	mu    sync.Mutex
	store localstore.Store
	key   string
	log   *logger.Logger
}

func NewTracker(store localstore.Store, operator string, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{
		store: store,
		key:   Key(operator),
		log:   log.With("component", "UnreadTracker"),
	}
}

// IsUnread is true when the thread changed after it was last seen, or was never seen.
func (t *Tracker) IsUnread(threadID uuid.UUID, updatedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen, ok := t.load()[threadID.String()]
	return !ok || updatedAt.UnixMilli() > seen
}

// MarkSeen records updatedAt as the thread's last-seen time. Markers never move backwards.
func (t *Tracker) MarkSeen(threadID uuid.UUID, updatedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.load()
	ms := updatedAt.UnixMilli()
	if prev, ok := m[threadID.String()]; ok && prev >= ms {
		return nil
	}
	m[threadID.String()] = ms
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := t.store.Set(t.key, string(raw)); err != nil {
		t.log.Warn("persist seen markers failed", "error", err)
		return err
	}
	return nil
}

// Forget drops the marker for a thread that no longer exists.
func (t *Tracker) Forget(threadID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.load()
	if _, ok := m[threadID.String()]; !ok {
		return nil
	}
	delete(m, threadID.String())
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return t.store.Set(t.key, string(raw))
}

func (t *Tracker) load() map[string]int64 {
	m := map[string]int64{}
	raw, ok, err := t.store.Get(t.key)
	if err != nil {
		t.log.Warn("read seen markers failed", "error", err)
		return m
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return m
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.log.Warn("seen markers corrupt; starting empty", "error", err)
		return map[string]int64{}
	}
	return m
}
