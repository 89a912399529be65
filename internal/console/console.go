// Package console is the admin side of support chat: the polled queue with
// unread markers, the selected conversation and the handoff actions.
package console

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/pkg/pointers"
	"github.com/yungbote/supportchat-backend/internal/poller"
	"github.com/yungbote/supportchat-backend/internal/unread"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

const messagePageSize = 100

var (
	ErrNoSelection  = errors.New("console: no thread selected")
	ErrSendInFlight = errors.New("console: a message is already being sent")
	ErrEmptyMessage = errors.New("console: message text is empty")
)

// API is the admin part of supportclient.Client.
type API interface {
	ListQueue(ctx context.Context, opts supportclient.QueueOptions) ([]supportclient.Thread, error)
	AdminGetThread(ctx context.Context, threadID uuid.UUID) (*supportclient.Thread, error)
	AdminListMessages(ctx context.Context, threadID uuid.UUID, opts supportclient.ListMessagesOptions) ([]supportclient.Message, error)
	AdminPostMessage(ctx context.Context, threadID uuid.UUID, text, clientID string) (*supportclient.Message, bool, error)
	TakeOver(ctx context.Context, threadID uuid.UUID, opts supportclient.TakeOverOptions) (*supportclient.Thread, error)
	ReleaseToAI(ctx context.Context, threadID uuid.UUID, provider string) (*supportclient.Thread, error)
}

// Item is a queue row annotated for display.
type Item struct {
	supportclient.Thread
	Unread bool
}

type Config struct {
	Queue        supportclient.QueueOptions
	PollInterval time.Duration
	Clock        clock.Clock
	Log          *logger.Logger
	// OnQueue is called after every successful queue refresh.
	OnQueue func([]Item)
}

type Console struct {
	api     API
	tracker *unread.Tracker
	cfg     Config
	log     *logger.Logger
	poll    *poller.Poller

	mu       sync.Mutex
	queue    []Item
	selected *supportclient.Thread
	messages []supportclient.Message
	synced   int64
	sending  bool
	// pending is the client id of a send that failed; a retry of the same
	// text into the same thread reuses it.
	pending pendingSend
}

type pendingSend struct {
	threadID uuid.UUID
	text     string
	clientID string
}

func New(api API, tracker *unread.Tracker, cfg Config) *Console {
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	c := &Console{
		api:     api,
		tracker: tracker,
		cfg:     cfg,
		log:     cfg.Log.With("component", "Console"),
	}
	opts := []poller.Option{poller.WithLogger(cfg.Log)}
	if cfg.Clock != nil {
		opts = append(opts, poller.WithClock(cfg.Clock))
	}
	c.poll = poller.New("console", cfg.PollInterval, c.tick, opts...)
	return c
}

func (c *Console) Start(ctx context.Context) { c.poll.Start(ctx) }

func (c *Console) Stop() { c.poll.Stop() }

func (c *Console) SetActive(active bool) { c.poll.SetActive(active) }

// PollErr reports the last polling failure, nil once polling recovers.
func (c *Console) PollErr() error { return c.poll.Err() }

func (c *Console) tick(ctx context.Context) error {
	if err := c.RefreshQueue(ctx); err != nil {
		return err
	}
	if sel := c.Selected(); sel != nil {
		return c.refreshSelected(ctx, sel.ID)
	}
	return nil
}

// RefreshQueue reloads the queue and recomputes unread markers.
func (c *Console) RefreshQueue(ctx context.Context) error {
	threads, err := c.api.ListQueue(ctx, c.cfg.Queue)
	if err != nil {
		return err
	}
	items := c.annotate(threads)
	c.mu.Lock()
	c.queue = items
	c.mu.Unlock()
	if c.cfg.OnQueue != nil {
		c.cfg.OnQueue(slices.Clone(items))
	}
	return nil
}

func (c *Console) Queue() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.queue)
}

func (c *Console) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.queue {
		if it.Unread {
			n++
		}
	}
	return n
}

// Select opens a thread and marks it seen. A thread that vanished since the
// last poll returns (nil, nil) after the queue is refreshed.
func (c *Console) Select(ctx context.Context, threadID uuid.UUID) (*supportclient.Thread, error) {
	th, err := c.api.AdminGetThread(ctx, threadID)
	if supportclient.IsNotFound(err) {
		c.log.Debug("selected thread is gone; refreshing queue", "thread_id", threadID)
		c.forget(threadID)
		if err := c.RefreshQueue(ctx); err != nil {
			c.log.Debug("queue refresh failed", "error", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msgs, err := c.api.AdminListMessages(ctx, threadID, supportclient.ListMessagesOptions{Limit: messagePageSize})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.selected = th
	c.messages = msgs
	c.synced = lastSeq(msgs)
	c.mu.Unlock()
	c.markSeen(*th)
	return th, nil
}

func (c *Console) Selected() *supportclient.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	th := *c.selected
	return &th
}

func (c *Console) Messages() []supportclient.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// TakeOver assigns the selected thread to the operator. The takeover carries
// the version the operator last saw, so a thread that moved on meanwhile
// fails with a ConflictError instead of being taken blind.
func (c *Console) TakeOver(ctx context.Context) (*supportclient.Thread, error) {
	sel := c.Selected()
	if sel == nil {
		return nil, ErrNoSelection
	}
	th, err := c.api.TakeOver(ctx, sel.ID, supportclient.TakeOverOptions{Version: pointers.Ptr(sel.Version)})
	if err != nil {
		if supportclient.IsConflict(err) || supportclient.IsNotFound(err) {
			c.poll.Kick()
		}
		return nil, err
	}
	c.setSelected(*th)
	c.poll.Kick()
	return th, nil
}

func (c *Console) Release(ctx context.Context, provider string) (*supportclient.Thread, error) {
	sel := c.Selected()
	if sel == nil {
		return nil, ErrNoSelection
	}
	th, err := c.api.ReleaseToAI(ctx, sel.ID, provider)
	if err != nil {
		return nil, err
	}
	c.setSelected(*th)
	c.poll.Kick()
	return th, nil
}

// Send posts as the operator into the selected thread; one send at a time.
// After a failure, sending the same text again reuses the failed attempt's
// client id so a request that did reach the server is not posted twice.
func (c *Console) Send(ctx context.Context, text string) (*supportclient.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return nil, ErrNoSelection
	}
	if c.sending {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	threadID := c.selected.ID
	if c.pending.threadID != threadID || c.pending.text != text {
		c.pending = pendingSend{threadID: threadID, text: text, clientID: uuid.NewString()}
	}
	clientID := c.pending.clientID
	c.sending = true
	c.mu.Unlock()

	msg, _, err := c.api.AdminPostMessage(ctx, threadID, text, clientID)

	c.mu.Lock()
	c.sending = false
	if err == nil {
		if c.pending.clientID == clientID {
			c.pending = pendingSend{}
		}
		if c.selected != nil && c.selected.ID == threadID {
			c.messages = mergeMessages(c.messages, []supportclient.Message{*msg})
		}
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *Console) refreshSelected(ctx context.Context, threadID uuid.UUID) error {
	th, err := c.api.AdminGetThread(ctx, threadID)
	if supportclient.IsNotFound(err) {
		c.forget(threadID)
		return nil
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	synced := c.synced
	c.mu.Unlock()
	msgs, err := supportclient.CatchUp(ctx, c.api.AdminListMessages, threadID, synced, messagePageSize)
	c.mu.Lock()
	if c.selected == nil || c.selected.ID != threadID {
		c.mu.Unlock()
		return nil
	}
	c.selected = th
	c.messages = mergeMessages(c.messages, msgs)
	c.synced = max(c.synced, lastSeq(msgs))
	c.mu.Unlock()
	if err != nil {
		return err
	}
	// The operator is looking at it.
	c.markSeen(*th)
	return nil
}

func (c *Console) setSelected(th supportclient.Thread) {
	c.mu.Lock()
	if c.selected != nil && c.selected.ID == th.ID {
		c.selected = &th
	}
	c.mu.Unlock()
	c.markSeen(th)
}

// forget drops a thread that no longer exists: the selection if it is the
// selected one, and its seen marker.
func (c *Console) forget(threadID uuid.UUID) {
	c.mu.Lock()
	if c.selected != nil && c.selected.ID == threadID {
		c.selected, c.messages, c.synced = nil, nil, 0
	}
	c.mu.Unlock()
	if err := c.tracker.Forget(threadID); err != nil {
		c.log.Debug("forget seen marker failed", "thread_id", threadID, "error", err)
	}
}

func (c *Console) markSeen(th supportclient.Thread) {
	if err := c.tracker.MarkSeen(th.ID, th.UpdatedAt); err != nil {
		c.log.Debug("mark seen failed", "thread_id", th.ID, "error", err)
	}
	c.mu.Lock()
	for i := range c.queue {
		if c.queue[i].ID == th.ID {
			c.queue[i].Unread = c.tracker.IsUnread(th.ID, c.queue[i].UpdatedAt)
		}
	}
	c.mu.Unlock()
}

func (c *Console) annotate(threads []supportclient.Thread) []Item {
	items := make([]Item, 0, len(threads))
	for _, th := range threads {
		items = append(items, Item{Thread: th, Unread: c.tracker.IsUnread(th.ID, th.UpdatedAt)})
	}
	return items
}

func lastSeq(msgs []supportclient.Message) int64 {
	var seq int64
	for _, m := range msgs {
		seq = max(seq, m.Seq)
	}
	return seq
}

func mergeMessages(have, incoming []supportclient.Message) []supportclient.Message {
	seen := make(map[uuid.UUID]struct{}, len(have))
	for _, m := range have {
		seen[m.ID] = struct{}{}
	}
	out := slices.Clone(have)
	for _, m := range incoming {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b supportclient.Message) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}
