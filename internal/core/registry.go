package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/domain"
)

// Registry is the process-wide session id → Room map. Its lock guards only
// room creation and removal; per-event traffic goes straight to a room's op
// queue and never touches this lock.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[domain.SessionID]*Room
	policy Policy
	evict  func(domain.SessionID, domain.ConnID)
}

func NewRegistry(policy Policy, evict func(domain.SessionID, domain.ConnID)) *Registry {
	return &Registry{
		rooms:  make(map[domain.SessionID]*Room),
		policy: policy,
		evict:  evict,
	}
}

// GetOrCreate returns the live room for id, creating one lazily on first
// join. A stopped room still lingering in the map is replaced.
func (g *Registry) GetOrCreate(id domain.SessionID) *Room {
	g.mu.RLock()
	room, ok := g.rooms[id]
	g.mu.RUnlock()
	if ok && room.Alive() {
		return room
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok = g.rooms[id]; ok && room.Alive() {
		return room
	}
	room = NewRoom(id, g.policy, Hooks{OnStop: g.remove, OnEvict: g.evict})
	g.rooms[id] = room
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return room
}

func (g *Registry) Get(id domain.SessionID) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[id]
	if !ok || !room.Alive() {
		return nil, false
	}
	return room, true
}

func (g *Registry) List() []RoomInfo {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if !r.Alive() {
			continue
		}
		out = append(out, RoomInfo{ID: r.ID(), ParticipantCount: r.MemberCount()})
	}
	return out
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) remove(id domain.SessionID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok := g.rooms[id]; ok && !room.Alive() {
		delete(g.rooms, id)
		log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room removed")
	}
}
