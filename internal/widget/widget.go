// Package widget is the end-user side of a support conversation: it resolves
// the cached context id, opens the thread, keeps the message list fresh and
// sends the draft.
package widget

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/supportchat-backend/internal/localstore"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/poller"
	"github.com/yungbote/supportchat-backend/pkg/supportclient"
)

const (
	pageSize        = 50
	maxMessageRunes = 8000
)

var (
	ErrNotOpen      = errors.New("widget: no open thread")
	ErrSendInFlight = errors.New("widget: a message is already being sent")
	ErrEmptyMessage = errors.New("widget: message text is empty")
	ErrTooLong      = errors.New("widget: message text is too long")
)

// API is the part of supportclient.Client the widget needs.
type API interface {
	CreateOrGetThread(ctx context.Context, contextType supportclient.ContextType, contextID string) (*supportclient.Thread, bool, error)
	GetThread(ctx context.Context, threadID uuid.UUID) (*supportclient.Thread, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, opts supportclient.ListMessagesOptions) ([]supportclient.Message, error)
	PostMessage(ctx context.Context, threadID uuid.UUID, text, clientID string) (*supportclient.Message, bool, error)
	RequestAdminHandoff(ctx context.Context, threadID uuid.UUID, note string) (*supportclient.Thread, error)
}

type Config struct {
	ContextType supportclient.ContextType
	// Scope names the cached context id, e.g. one per embedding page.
	Scope        string
	PollInterval time.Duration
	Clock        clock.Clock
	Log          *logger.Logger
	// OnMessage is called once for every message the widget has not shown before.
	OnMessage func(supportclient.Message)
	// OnThread is called whenever the thread changes handoff state.
	OnThread func(supportclient.Thread)
}

type Widget struct {
	api   API
	store localstore.Store
	cfg   Config
	log   *logger.Logger
	poll  *poller.Poller
	group singleflight.Group

	mu        sync.Mutex
	thread    *supportclient.Thread
	messages  []supportclient.Message
	seen      map[uuid.UUID]struct{}
	loaded    bool
	synced    int64
	draft     string
	draftID   string
	inFlight  map[uuid.UUID]bool
	lastState supportclient.ThreadState
}

func New(api API, store localstore.Store, cfg Config) *Widget {
	if cfg.ContextType == "" {
		cfg.ContextType = supportclient.ContextRequest
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	w := &Widget{
		api:      api,
		store:    store,
		cfg:      cfg,
		log:      cfg.Log.With("component", "Widget"),
		seen:     map[uuid.UUID]struct{}{},
		inFlight: map[uuid.UUID]bool{},
	}
	opts := []poller.Option{poller.WithLogger(cfg.Log), poller.WithActive(false)}
	if cfg.Clock != nil {
		opts = append(opts, poller.WithClock(cfg.Clock))
	}
	w.poll = poller.New("widget", cfg.PollInterval, w.Refresh, opts...)
	return w
}

// Open resolves the context id and gets or creates its thread, then starts
// polling. Concurrent calls share one create request.
func (w *Widget) Open(ctx context.Context) (*supportclient.Thread, error) {
	contextID, err := localstore.SupportContextID(w.store, w.cfg.Scope)
	if err != nil {
		return nil, fmt.Errorf("resolve support context: %w", err)
	}
	v, err, _ := w.group.Do(string(w.cfg.ContextType)+":"+contextID, func() (any, error) {
		th, _, err := w.api.CreateOrGetThread(ctx, w.cfg.ContextType, contextID)
		return th, err
	})
	if err != nil {
		return nil, err
	}
	th := v.(*supportclient.Thread)
	w.setThread(*th)

	if err := w.Refresh(ctx); err != nil {
		w.log.Debug("initial refresh failed", "thread_id", th.ID, "error", err)
	}
	w.poll.Start(context.WithoutCancel(ctx))
	w.poll.SetActive(true)
	return th, nil
}

// Hide pauses polling; Show resumes it with an immediate refresh.
func (w *Widget) Hide() { w.poll.SetActive(false) }

func (w *Widget) Show() { w.poll.SetActive(true) }

// Close stops polling for good.
func (w *Widget) Close() { w.poll.Stop() }

// Refresh reloads the thread and every message past the last one it read
// from the log. The first refresh of a thread loads the newest page.
func (w *Widget) Refresh(ctx context.Context) error {
	th := w.Thread()
	if th == nil {
		return nil
	}
	fresh, err := w.api.GetThread(ctx, th.ID)
	if err != nil {
		return err
	}
	w.setThread(*fresh)

	w.mu.Lock()
	loaded, synced := w.loaded, w.synced
	w.mu.Unlock()
	var msgs []supportclient.Message
	if !loaded {
		msgs, err = w.api.ListMessages(ctx, th.ID, supportclient.ListMessagesOptions{Limit: pageSize})
	} else {
		msgs, err = supportclient.CatchUp(ctx, w.api.ListMessages, th.ID, synced, pageSize)
	}
	w.advance(th.ID, msgs, err == nil)
	w.merge(msgs...)
	return err
}

func (w *Widget) SetDraft(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if text != w.draft {
		w.draftID = ""
	}
	w.draft = text
}

func (w *Widget) Draft() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Send posts the draft. It is rejected while another send for the same thread
// is in flight. On failure the draft is kept and a retry reuses its client id,
// so a send that reached the server is not duplicated.
func (w *Widget) Send(ctx context.Context) (*supportclient.Message, error) {
	w.mu.Lock()
	if w.thread == nil {
		w.mu.Unlock()
		return nil, ErrNotOpen
	}
	threadID := w.thread.ID
	text := strings.TrimSpace(w.draft)
	switch {
	case text == "":
		w.mu.Unlock()
		return nil, ErrEmptyMessage
	case utf8.RuneCountInString(text) > maxMessageRunes:
		w.mu.Unlock()
		return nil, ErrTooLong
	case w.inFlight[threadID]:
		w.mu.Unlock()
		return nil, ErrSendInFlight
	}
	if w.draftID == "" {
		w.draftID = uuid.NewString()
	}
	clientID := w.draftID
	w.inFlight[threadID] = true
	w.mu.Unlock()

	msg, _, err := w.api.PostMessage(ctx, threadID, text, clientID)

	w.mu.Lock()
	delete(w.inFlight, threadID)
	if err == nil && w.draftID == clientID {
		w.draft, w.draftID = "", ""
	}
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	w.merge(*msg)
	w.poll.Kick()
	return msg, nil
}

// RequestAdmin asks for a human; the assistant stops answering.
func (w *Widget) RequestAdmin(ctx context.Context, note string) (*supportclient.Thread, error) {
	th := w.Thread()
	if th == nil {
		return nil, ErrNotOpen
	}
	fresh, err := w.api.RequestAdminHandoff(ctx, th.ID, note)
	if err != nil {
		return nil, err
	}
	w.setThread(*fresh)
	return fresh, nil
}

func (w *Widget) Thread() *supportclient.Thread {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.thread == nil {
		return nil
	}
	th := *w.thread
	return &th
}

// Messages is a snapshot ordered by seq.
func (w *Widget) Messages() []supportclient.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.messages)
}

// PollErr reports the last polling failure, nil once polling recovers.
func (w *Widget) PollErr() error { return w.poll.Err() }

func (w *Widget) setThread(th supportclient.Thread) {
	w.mu.Lock()
	if w.thread != nil && w.thread.ID == th.ID && th.Version < w.thread.Version {
		// A poll that started before a local change finished after it.
		w.mu.Unlock()
		return
	}
	if w.thread != nil && w.thread.ID != th.ID {
		w.messages, w.seen = nil, map[uuid.UUID]struct{}{}
		w.loaded, w.synced = false, 0
	}
	changed := th.State != w.lastState
	w.thread, w.lastState = &th, th.State
	w.mu.Unlock()
	if changed && w.cfg.OnThread != nil {
		w.cfg.OnThread(th)
	}
}

// advance moves the log cursor past msgs. Messages merged from a send do not
// move it, so anything posted before them is still fetched.
func (w *Widget) advance(threadID uuid.UUID, msgs []supportclient.Message, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.thread == nil || w.thread.ID != threadID {
		return
	}
	if ok {
		w.loaded = true
	}
	for _, m := range msgs {
		w.synced = max(w.synced, m.Seq)
	}
}

func (w *Widget) merge(msgs ...supportclient.Message) {
	var fresh []supportclient.Message
	w.mu.Lock()
	for _, m := range msgs {
		if _, ok := w.seen[m.ID]; ok {
			continue
		}
		w.seen[m.ID] = struct{}{}
		w.messages = append(w.messages, m)
		fresh = append(fresh, m)
	}
	slices.SortFunc(w.messages, bySeq)
	w.mu.Unlock()
	if w.cfg.OnMessage == nil {
		return
	}
	slices.SortFunc(fresh, bySeq)
	for _, m := range fresh {
		w.cfg.OnMessage(m)
	}
}

func bySeq(a, b supportclient.Message) int { return cmp.Compare(a.Seq, b.Seq) }
