package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/domain"
)

type LinkState int

const (
	LinkPending LinkState = iota
	LinkEstablished
)

// LinkKey identifies one signaling negotiation. Keying by stream type next
// to the conn pair is what keeps a secondary-camera renegotiation from ever
// touching the primary call between the same two peers.
type LinkKey struct {
	From   domain.ConnID
	To     domain.ConnID
	Stream domain.StreamType
}

// PeerLinkManager tracks in-flight offer/answer correlation state per
// (offerer, answerer, streamType). It holds no media and no SDP: links are
// bookkeeping so departures release every negotiation deterministically
// instead of leaving forgotten peer objects behind.
type PeerLinkManager struct {
	mu    sync.RWMutex
	links map[LinkKey]LinkState
}

func NewPeerLinkManager() *PeerLinkManager {
	return &PeerLinkManager{links: make(map[LinkKey]LinkState)}
}

// Track records an outstanding offer. Re-offering the same key resets the
// link to pending (renegotiation).
func (m *PeerLinkManager) Track(from, to domain.ConnID, stream domain.StreamType) {
	key := LinkKey{From: from, To: to, Stream: stream}
	m.mu.Lock()
	if st, ok := m.links[key]; ok && st == LinkEstablished {
		log.Info().Str("module", "app.links").Str("from", string(from)).
			Str("to", string(to)).Str("stream", string(stream)).Msg("renegotiating link")
	}
	m.links[key] = LinkPending
	m.mu.Unlock()
}

// Confirm marks the link pending under (offerer, answerer, stream) as
// established. An answer with no matching offer is ignored.
func (m *PeerLinkManager) Confirm(offerer, answerer domain.ConnID, stream domain.StreamType) bool {
	key := LinkKey{From: offerer, To: answerer, Stream: stream}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[key]; !ok {
		return false
	}
	m.links[key] = LinkEstablished
	return true
}

func (m *PeerLinkManager) State(from, to domain.ConnID, stream domain.StreamType) (LinkState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.links[LinkKey{From: from, To: to, Stream: stream}]
	return st, ok
}

// DropConn releases every link the conn participates in, either side,
// and reports how many were removed.
func (m *PeerLinkManager) DropConn(conn domain.ConnID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.links {
		if key.From == conn || key.To == conn {
			delete(m.links, key)
			n++
		}
	}
	if n > 0 {
		log.Info().Str("module", "app.links").Str("conn", string(conn)).
			Int("released", n).Msg("released peer links")
	}
	return n
}

func (m *PeerLinkManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}
