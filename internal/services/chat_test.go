package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/supportchat-backend/internal/domain"
	domainerrors "github.com/yungbote/supportchat-backend/internal/pkg/errors"
	"github.com/yungbote/supportchat-backend/internal/pkg/pointers"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
)

func TestCreateOrGetThreadIsIdempotentPerContext(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()

	first, created, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "job-42")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if !created {
		t.Fatalf("first call should create")
	}
	if first.State() != types.StateAIServed || first.AIProvider != types.AIProviderAuto {
		t.Fatalf("initial thread: state=%s provider=%s", first.State(), first.AIProvider)
	}

	second, created, err := f.svc.CreateOrGetThread(asUser(buyer), " JOB ", " job-42 ")
	if err != nil {
		t.Fatalf("CreateOrGetThread again: %v", err)
	}
	if created {
		t.Fatalf("second call should not create")
	}
	if second.ID != first.ID {
		t.Fatalf("thread id: want=%s got=%s", first.ID, second.ID)
	}

	other, _, err := f.svc.CreateOrGetThread(asUser(buyer), "request", "job-42")
	if err != nil {
		t.Fatalf("CreateOrGetThread request: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("context type must be part of the key")
	}
}

func TestCreateOrGetThreadConcurrentCallersShareOneThread(t *testing.T) {
	f := newChatFixture(t)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th, _, err := f.svc.CreateOrGetThread(asUser(uuid.New()), "request", "rfq-7")
			errs[i] = err
			if th != nil {
				ids[i] = th.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got thread %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestCreateOrGetThreadValidation(t *testing.T) {
	f := newChatFixture(t)
	cases := []struct {
		name, contextType, contextID string
	}{
		{"unknown type", "invoice", "1"},
		{"blank id", "job", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.CreateOrGetThread(asUser(uuid.New()), tc.contextType, tc.contextID)
			if !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestGetThreadAccess(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "j-1")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}

	if _, err := f.svc.GetThread(asUser(uuid.New()), th.ID); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("stranger: want forbidden, got %v", err)
	}
	if _, err := f.svc.GetThread(asAdmin(uuid.New()), th.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := f.svc.GetThread(asUser(buyer), uuid.New()); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("missing: want not found, got %v", err)
	}
}

func TestHandoffLifecycle(t *testing.T) {
	f := newChatFixture(t)
	buyer, admin := uuid.New(), uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "j-2")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	lastUpdated := th.UpdatedAt

	pending, err := f.svc.RequestAdminHandoff(asUser(buyer), th.ID, "  need a human  ")
	if err != nil {
		t.Fatalf("RequestAdminHandoff: %v", err)
	}
	if pending.State() != types.StateAdminPending {
		t.Fatalf("state: want=%s got=%s", types.StateAdminPending, pending.State())
	}
	if pending.HandoffNote != "need a human" || pending.HandoffRequestedAt == nil {
		t.Fatalf("handoff note not recorded: %+v", pending)
	}
	if !pending.UpdatedAt.After(lastUpdated) {
		t.Fatalf("updated_at must advance")
	}
	lastUpdated = pending.UpdatedAt

	again, err := f.svc.RequestAdminHandoff(asUser(buyer), th.ID, "again")
	if err != nil {
		t.Fatalf("RequestAdminHandoff again: %v", err)
	}
	if again.Version != pending.Version || again.HandoffNote != "need a human" {
		t.Fatalf("repeat request must be a no-op: version %d -> %d", pending.Version, again.Version)
	}
	if f.notify.count("handoff_requested") != 1 {
		t.Fatalf("handoff_requested frames: want=1 got=%d", f.notify.count("handoff_requested"))
	}

	served, err := f.svc.AdminTakeOverThread(asAdmin(admin), th.ID, nil, nil)
	if err != nil {
		t.Fatalf("AdminTakeOverThread: %v", err)
	}
	if served.State() != types.StateAdminServed || served.AssignedAdminUserID == nil || *served.AssignedAdminUserID != admin {
		t.Fatalf("takeover: %+v", served)
	}
	if !served.UpdatedAt.After(lastUpdated) {
		t.Fatalf("updated_at must advance")
	}
	lastUpdated = served.UpdatedAt

	released, err := f.svc.AdminReleaseToAI(asAdmin(admin), th.ID, pointers.Ptr("grok"))
	if err != nil {
		t.Fatalf("AdminReleaseToAI: %v", err)
	}
	if released.State() != types.StateAIServed || released.AssignedAdminUserID != nil || released.AIProvider != types.AIProviderGrok {
		t.Fatalf("release: %+v", released)
	}
	if !released.Consistent() || !released.UpdatedAt.After(lastUpdated) {
		t.Fatalf("release must keep invariants")
	}

	f.events.mu.Lock()
	keys := append([]string(nil), f.events.keys...)
	f.events.mu.Unlock()
	want := []string{events.KeyHandoffRequested, events.KeyThreadAssigned, events.KeyThreadReleased}
	if len(keys) != len(want) {
		t.Fatalf("events: want=%v got=%v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("events[%d]: want=%s got=%s", i, want[i], keys[i])
		}
	}
}

func TestTakeOverWithoutPriorRequestAndLastWriterWins(t *testing.T) {
	f := newChatFixture(t)
	th, _, err := f.svc.CreateOrGetThread(asUser(uuid.New()), "request", "r-1")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	a, b := uuid.New(), uuid.New()
	if _, err := f.svc.AdminTakeOverThread(asAdmin(a), th.ID, nil, nil); err != nil {
		t.Fatalf("takeover a: %v", err)
	}
	got, err := f.svc.AdminTakeOverThread(asAdmin(b), th.ID, nil, nil)
	if err != nil {
		t.Fatalf("takeover b: %v", err)
	}
	if got.AssignedAdminUserID == nil || *got.AssignedAdminUserID != b {
		t.Fatalf("last takeover should win")
	}

	stale := got.Version - 1
	if _, err := f.svc.AdminTakeOverThread(asAdmin(a), th.ID, nil, &stale); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("stale version: want conflict, got %v", err)
	}
	current := got.Version
	if _, err := f.svc.AdminTakeOverThread(asAdmin(a), th.ID, nil, &current); err != nil {
		t.Fatalf("current version: %v", err)
	}
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	f := newChatFixture(t)
	buyer := uuid.New()
	th, _, err := f.svc.CreateOrGetThread(asUser(buyer), "job", "j-3")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if _, err := f.svc.AdminTakeOverThread(asUser(buyer), th.ID, nil, nil); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("takeover: want forbidden, got %v", err)
	}
	if _, err := f.svc.ListQueue(asUser(buyer), QueueQuery{}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("queue: want forbidden, got %v", err)
	}
	if _, err := f.svc.AdminSetAIProvider(asAdmin(uuid.New()), th.ID, "gemini"); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("bad provider: want validation, got %v", err)
	}
	if _, err := f.svc.AdminTakeOverThread(asAdmin(uuid.New()), uuid.New(), nil, nil); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("missing thread: want not found, got %v", err)
	}
}

func TestListQueueFilters(t *testing.T) {
	f := newChatFixture(t)
	admin := uuid.New()
	mk := func(id string) *types.ChatThread {
		th, _, err := f.svc.CreateOrGetThread(asUser(uuid.New()), "job", id)
		if err != nil {
			t.Fatalf("CreateOrGetThread: %v", err)
		}
		return th
	}
	aiOnly := mk("q-ai")
	pending := mk("q-pending")
	served := mk("q-served")

	if _, err := f.svc.RequestAdminHandoff(asAdmin(admin), pending.ID, ""); err != nil {
		t.Fatalf("RequestAdminHandoff: %v", err)
	}
	f.clock.Add(time.Second)
	if _, err := f.svc.AdminTakeOverThread(asAdmin(admin), served.ID, nil, nil); err != nil {
		t.Fatalf("AdminTakeOverThread: %v", err)
	}

	ids := func(state string, mine bool) []uuid.UUID {
		rows, err := f.svc.ListQueue(asAdmin(admin), QueueQuery{State: state, AssignedToMe: mine})
		if err != nil {
			t.Fatalf("ListQueue(%q): %v", state, err)
		}
		out := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	if got := ids("pending", false); len(got) != 1 || got[0] != pending.ID {
		t.Fatalf("pending: %v", got)
	}
	if got := ids("served", true); len(got) != 1 || got[0] != served.ID {
		t.Fatalf("served mine: %v", got)
	}
	if got := ids("", false); len(got) != 2 || got[0] != served.ID {
		t.Fatalf("default admin queue, newest first: %v", got)
	}
	if got := ids("ai", false); len(got) != 1 || got[0] != aiOnly.ID {
		t.Fatalf("ai: %v", got)
	}
	if got := ids("all", false); len(got) != 3 {
		t.Fatalf("all: %v", got)
	}
	if _, err := f.svc.ListQueue(asAdmin(admin), QueueQuery{State: "closed"}); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("unknown state: want validation, got %v", err)
	}
}

func TestListThreadsReturnsOnlyOwnThreads(t *testing.T) {
	f := newChatFixture(t)
	me, other := uuid.New(), uuid.New()
	mine, _, err := f.svc.CreateOrGetThread(asUser(me), "job", "mine")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if _, _, err := f.svc.CreateOrGetThread(asUser(other), "job", "theirs"); err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}

	rows, err := f.svc.ListThreads(asUser(me), ThreadFilter{})
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != mine.ID {
		t.Fatalf("own threads: %v", rows)
	}

	rows, err = f.svc.ListThreads(asUser(me), ThreadFilter{ContextType: "job", ContextID: "mine"})
	if err != nil {
		t.Fatalf("ListThreads by key: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("by key: want=1 got=%d", len(rows))
	}
}

func TestMarkReadJoinsAdminAsParticipant(t *testing.T) {
	f := newChatFixture(t)
	th, _, err := f.svc.CreateOrGetThread(asUser(uuid.New()), "job", "read")
	if err != nil {
		t.Fatalf("CreateOrGetThread: %v", err)
	}
	if err := f.svc.MarkRead(asAdmin(uuid.New()), th.ID); err != nil {
		t.Fatalf("MarkRead admin: %v", err)
	}
	if err := f.svc.MarkRead(asUser(uuid.New()), th.ID); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("stranger: want forbidden, got %v", err)
	}
}
