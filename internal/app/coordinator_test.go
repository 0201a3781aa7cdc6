package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
	"github.com/hireloop/liveroom/internal/protocol"
)

type fakeSig struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeSig) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(core.Frame, len(fr))
	copy(cp, fr)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSig) Close() {}

func (f *fakeSig) typed(t *testing.T, typ string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, fr := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(fr, &m); err != nil {
			t.Fatalf("bad frame %q: %v", fr, err)
		}
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func register(c *Coordinator, id domain.ConnID) *fakeSig {
	sig := &fakeSig{}
	c.Register(id, sig, func() {})
	return sig
}

func dispatchJoin(c *Coordinator, id domain.ConnID, session, pid, name, role string) {
	c.Dispatch(id, &protocol.Join{
		Type:          protocol.EvJoin,
		SessionID:     session,
		ParticipantID: pid,
		UserName:      name,
		Role:          role,
	})
}

// settle waits for the room's loop to drain pending ops.
func settle(t *testing.T, c *Coordinator, session string) protocol.RoomState {
	t.Helper()
	room, ok := c.Rooms.Get(domain.SessionID(session))
	if !ok {
		t.Fatalf("room %s missing", session)
	}
	st, ok := room.Snapshot()
	if !ok {
		t.Fatalf("room %s stopped", session)
	}
	return st
}

func TestJoinDeliversSnapshot(t *testing.T) {
	c := NewCoordinator()
	sigA := register(c, "ca")

	dispatchJoin(c, "ca", "S1", "pa", "Alice", "recruiter")

	states := sigA.typed(t, protocol.EvRoomState)
	if len(states) != 1 {
		t.Fatalf("expected one room-state, got %d", len(states))
	}
	parts := states[0]["participants"].([]any)
	if len(parts) != 1 || parts[0].(map[string]any)["socketId"] != "ca" {
		t.Fatalf("snapshot roster wrong: %+v", parts)
	}
	if roomID, ok := c.Conns.RoomOf("ca"); !ok || roomID != "S1" {
		t.Fatalf("conn not bound to room: %v %v", roomID, ok)
	}
}

func TestJoinInvalidRole(t *testing.T) {
	c := NewCoordinator()
	sig := register(c, "ca")

	dispatchJoin(c, "ca", "S1", "pa", "Alice", "observer")

	if got := sig.typed(t, "error"); len(got) != 1 {
		t.Fatalf("expected error frame, got %+v", got)
	}
	if _, ok := c.Conns.RoomOf("ca"); ok {
		t.Fatalf("invalid join bound the conn to a room")
	}
}

func TestRelayStreamIsolation(t *testing.T) {
	c := NewCoordinator()
	register(c, "ca")
	sigB := register(c, "cb")
	dispatchJoin(c, "ca", "S1", "pa", "Alice", "recruiter")
	dispatchJoin(c, "cb", "S1", "pb", "Bob", "candidate")

	c.Dispatch("ca", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "S1", To: "cb",
		StreamType: "primary", Offer: json.RawMessage(`{"sdp":"primary-sdp"}`),
	})
	c.Dispatch("ca", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "S1", To: "cb",
		StreamType: "screen", Offer: json.RawMessage(`{"sdp":"screen-sdp"}`),
	})

	offers := sigB.typed(t, protocol.EvOffer)
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	// Each frame keeps its own stream's payload: negotiations never bleed
	// across stream types between the same pair.
	byStream := map[string]string{}
	for _, o := range offers {
		if o["from"] != "ca" {
			t.Fatalf("offer not retagged with sender: %+v", o)
		}
		byStream[o["streamType"].(string)] = o["offer"].(map[string]any)["sdp"].(string)
	}
	if byStream["primary"] != "primary-sdp" || byStream["screen"] != "screen-sdp" {
		t.Fatalf("payloads crossed streams: %+v", byStream)
	}

	if st, ok := c.Links.State("ca", "cb", domain.StreamPrimary); !ok || st != LinkPending {
		t.Fatalf("primary link not tracked: %v %v", st, ok)
	}
	if st, ok := c.Links.State("ca", "cb", domain.StreamScreen); !ok || st != LinkPending {
		t.Fatalf("screen link not tracked: %v %v", st, ok)
	}

	// Bob answers the primary negotiation only.
	c.Dispatch("cb", &protocol.Answer{
		Type: protocol.EvAnswer, SessionID: "S1", To: "ca",
		StreamType: "primary", Answer: json.RawMessage(`{"sdp":"answer"}`),
	})
	if st, _ := c.Links.State("ca", "cb", domain.StreamPrimary); st != LinkEstablished {
		t.Fatalf("answer did not establish primary link: %v", st)
	}
	if st, _ := c.Links.State("ca", "cb", domain.StreamScreen); st != LinkPending {
		t.Fatalf("answer touched the screen link: %v", st)
	}
}

func TestRelayUnknownStreamDropped(t *testing.T) {
	c := NewCoordinator()
	register(c, "ca")
	sigB := register(c, "cb")
	dispatchJoin(c, "ca", "S1", "pa", "Alice", "recruiter")
	dispatchJoin(c, "cb", "S1", "pb", "Bob", "candidate")

	c.Dispatch("ca", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "S1", To: "cb",
		StreamType: "hologram", Offer: json.RawMessage(`{}`),
	})
	if got := sigB.typed(t, protocol.EvOffer); len(got) != 0 {
		t.Fatalf("unknown stream type relayed: %+v", got)
	}
	if c.Links.Count() != 0 {
		t.Fatalf("unknown stream type tracked a link")
	}
}

func TestStaleSessionNoOp(t *testing.T) {
	c := NewCoordinator()
	register(c, "ca")

	// Events for a session that never existed are dropped, never a panic.
	c.Dispatch("ca", &protocol.CodeUpdate{Type: protocol.EvCodeUpdate, SessionID: "ghost", Code: "x"})
	c.Dispatch("ca", &protocol.Leave{Type: protocol.EvLeave, SessionID: "ghost"})
	c.Dispatch("ca", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "ghost", To: "cb",
		StreamType: "primary", Offer: json.RawMessage(`{}`),
	})
	if c.Rooms.Len() != 0 {
		t.Fatalf("stale events created a room")
	}
}

func TestDisconnectImplicitLeave(t *testing.T) {
	c := NewCoordinator()
	register(c, "ca")
	sigB := register(c, "cb")
	dispatchJoin(c, "ca", "S1", "pa", "Alice", "recruiter")
	dispatchJoin(c, "cb", "S1", "pb", "Bob", "candidate")
	c.Dispatch("ca", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "S1", To: "cb",
		StreamType: "primary", Offer: json.RawMessage(`{}`),
	})

	c.OnDisconnect("ca")
	st := settle(t, c, "S1")
	if len(st.Participants) != 1 || st.Participants[0].SocketID != "cb" {
		t.Fatalf("disconnect did not leave the room: %+v", st.Participants)
	}
	if got := sigB.typed(t, protocol.EvParticipantLeft); len(got) != 1 || got[0]["socketId"] != "ca" {
		t.Fatalf("remaining member missed participant-left: %+v", got)
	}
	if c.Links.Count() != 0 {
		t.Fatalf("links survived the disconnect")
	}
	if _, ok := c.Conns.Signal("ca"); ok {
		t.Fatalf("conn binding survived the disconnect")
	}
}

func TestDisconnectCancelsConnContext(t *testing.T) {
	c := NewCoordinator()
	canceled := false
	c.Register("ca", &fakeSig{}, func() { canceled = true })

	c.OnDisconnect("ca")
	if !canceled {
		t.Fatalf("unbind left the conn context alive")
	}
}

func TestReconnectDropsStaleLinks(t *testing.T) {
	c := NewCoordinator()
	register(c, "ca")
	register(c, "cb")
	dispatchJoin(c, "ca", "S1", "pa", "Alice", "recruiter")
	dispatchJoin(c, "cb", "S1", "pb", "Bob", "candidate")
	c.Dispatch("cb", &protocol.Offer{
		Type: protocol.EvOffer, SessionID: "S1", To: "ca",
		StreamType: "primary", Offer: json.RawMessage(`{}`),
	})

	// Bob reconnects on a new transport conn with the same participant id.
	register(c, "cb2")
	dispatchJoin(c, "cb2", "S1", "pb", "Bob", "candidate")

	st := settle(t, c, "S1")
	if len(st.Participants) != 2 {
		t.Fatalf("reconnect grew the roster: %+v", st.Participants)
	}
	if _, ok := c.Links.State("cb", "ca", domain.StreamPrimary); ok {
		t.Fatalf("stale conn's link survived the reconnect")
	}
}
