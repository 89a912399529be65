package realtime

import (
	"strings"
	"sync"

	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

// Subscriber is anything that can receive encoded frames; *Connection in production.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
}

// Hub fans frames out to the subscribers of a room on this node.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	metrics *observability.Metrics
	rooms   map[string]map[string]Subscriber
	joined  map[string]map[string]struct{}
}

func NewHub(log *logger.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:     log.With("component", "RealtimeHub"),
		metrics: metrics,
		rooms:   make(map[string]map[string]Subscriber),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Join(room string, sub Subscriber) {
	room = strings.TrimSpace(room)
	if room == "" || sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]Subscriber)
		h.rooms[room] = members
	}
	members[sub.ID()] = sub

	memberships := h.joined[sub.ID()]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.joined[sub.ID()] = memberships
	}
	memberships[room] = struct{}{}
	h.log.Debug("subscriber joined room", "conn_id", sub.ID(), "room", room)
}

func (h *Hub) Leave(room string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, sub.ID())
}

// LeaveAll removes sub from every room it joined.
func (h *Hub) LeaveAll(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[sub.ID()] {
		h.leaveLocked(room, sub.ID())
	}
	delete(h.joined, sub.ID())
}

func (h *Hub) leaveLocked(room, id string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if memberships, ok := h.joined[id]; ok {
		delete(memberships, room)
	}
}

// Broadcast encodes the frame once and returns how many subscribers accepted it.
func (h *Hub) Broadcast(env Envelope) int {
	if env.Room == "" {
		return 0
	}
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[env.Room]))
	for _, sub := range h.rooms[env.Room] {
		members = append(members, sub)
	}
	h.mu.RUnlock()
	if len(members) == 0 {
		return 0
	}

	payload, err := env.Frame.Encode()
	if err != nil {
		h.log.Warn("failed to encode frame", "error", err, "type", env.Frame.Type)
		return 0
	}
	delivered := 0
	for _, sub := range members {
		if err := sub.Send(payload); err != nil {
			h.metrics.IncRealtimeDropped()
			h.log.Warn("dropping frame", "conn_id", sub.ID(), "room", env.Room, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
