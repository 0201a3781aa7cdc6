package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
)

type binding struct {
	conn   core.SignalConnection
	room   domain.SessionID
	cancel context.CancelFunc
}

// ConnRegistry tracks every live transport connection and its current room
// association. It is the only place a conn id resolves to a send handle
// outside of room rosters.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*binding
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[domain.ConnID]*binding)}
}

func (r *ConnRegistry) Bind(id domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &binding{conn: conn, cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound connection")
}

// Unbind removes the conn and cancels its context so both pumps unwind;
// without the cancel, child contexts pile up until server shutdown.
func (r *ConnRegistry) Unbind(id domain.ConnID) {
	r.mu.Lock()
	b, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if ok && b.cancel != nil {
		b.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound connection")
}

func (r *ConnRegistry) Signal(id domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[id]; ok {
		return b.conn, true
	}
	return nil, false
}

func (r *ConnRegistry) SetRoom(id domain.ConnID, room domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[id]; ok {
		b.room = room
	}
}

// ClearRoom drops the room association, but only if it still points at the
// given room; a conn that already rejoined elsewhere is left alone.
func (r *ConnRegistry) ClearRoom(id domain.ConnID, room domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[id]; ok && b.room == room {
		b.room = ""
	}
}

func (r *ConnRegistry) RoomOf(id domain.ConnID) (domain.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.conns[id]; ok && b.room != "" {
		return b.room, true
	}
	return "", false
}

func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
