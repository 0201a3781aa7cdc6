package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/core"
	"github.com/hireloop/liveroom/internal/domain"
	"github.com/hireloop/liveroom/internal/protocol"
)

// joinAttempts bounds the retry when a join races a room that is stopping.
const joinAttempts = 3

// Coordinator routes decoded client events to rooms and owns the pieces
// that outlive a single room: the connection registry and the peer link
// manager. One instance serves the whole process.
type Coordinator struct {
	Rooms *core.Registry
	Conns *ConnRegistry
	Links *PeerLinkManager
}

func NewCoordinator() *Coordinator {
	c := &Coordinator{
		Conns: NewConnRegistry(),
		Links: NewPeerLinkManager(),
	}
	c.Rooms = core.NewRegistry(KickSlowPolicy{}, c.onEvict)
	return c
}

// Register binds a fresh transport connection before any join arrives.
func (c *Coordinator) Register(id domain.ConnID, conn core.SignalConnection, cancel context.CancelFunc) {
	c.Conns.Bind(id, conn, cancel)
}

// OnDisconnect handles transport loss as an implicit leave. Safe to call
// for a conn that never joined a room.
func (c *Coordinator) OnDisconnect(id domain.ConnID) {
	if roomID, ok := c.Conns.RoomOf(id); ok {
		if room, ok := c.Rooms.Get(roomID); ok {
			room.Leave(id)
		}
	}
	c.Links.DropConn(id)
	c.Conns.Unbind(id)
}

// Dispatch is the collaboration event router: one exhaustive switch over
// the closed event union. Authorization and echo policy are applied inside
// the room under its serialized loop.
func (c *Coordinator) Dispatch(id domain.ConnID, ev protocol.Event) {
	metricEvents.WithLabelValues(ev.Name()).Inc()

	switch ev := ev.(type) {
	case *protocol.Join:
		c.join(id, ev)
	case *protocol.Leave:
		c.leave(id, ev)
	case *protocol.End:
		c.end(id, ev)
	case *protocol.Offer:
		c.relay(id, core.RelayOffer, ev.SessionID, ev.To, ev.StreamType, &protocol.SignalRelay{
			Type:       protocol.EvOffer,
			From:       string(id),
			StreamType: ev.StreamType,
			Offer:      ev.Offer,
		})
	case *protocol.Answer:
		c.relay(id, core.RelayAnswer, ev.SessionID, ev.To, ev.StreamType, &protocol.SignalRelay{
			Type:       protocol.EvAnswer,
			From:       string(id),
			StreamType: ev.StreamType,
			Answer:     ev.Answer,
		})
	case *protocol.ICECandidate:
		c.relay(id, core.RelayCandidate, ev.SessionID, ev.To, ev.StreamType, &protocol.SignalRelay{
			Type:       protocol.EvICECandidate,
			From:       string(id),
			StreamType: ev.StreamType,
			Candidate:  ev.Candidate,
		})
	case *protocol.CodeUpdate:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.UpdateCode(id, ev)
		}
	case *protocol.CursorPosition:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.CursorMove(id, ev)
		}
	case *protocol.SelectQuestion:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.SelectQuestion(id, ev)
		}
	case *protocol.TimerControl:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.ControlTimer(id, ev)
		}
	case *protocol.WhiteboardDraw:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.Draw(id, ev)
		}
	case *protocol.WhiteboardClear:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.ClearBoard(id, ev)
		}
	case *protocol.StartScreenShare:
		c.startScreenShare(id, ev)
	case *protocol.StopScreenShare:
		if room, ok := c.room(ev.SessionID, ev.Name()); ok {
			room.StopScreenShare(id)
		}
	default:
		log.Warn().Str("module", "app.coordinator").Str("event", ev.Name()).Msg("unhandled event")
	}
}

func (c *Coordinator) join(id domain.ConnID, ev *protocol.Join) {
	conn, ok := c.Conns.Signal(id)
	if !ok {
		log.Warn().Str("module", "app.coordinator").Str("conn", string(id)).Msg("join from unregistered conn")
		return
	}

	role, err := domain.ParseRole(ev.Role)
	if err != nil {
		c.sendError(conn, "invalid role")
		return
	}
	p, err := domain.NewParticipant(id, domain.ParticipantID(ev.ParticipantID), ev.UserName, role)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("conn", string(id)).Msg("bad join payload")
		c.sendError(conn, "bad_payload")
		return
	}
	for _, cam := range ev.Cameras {
		st, err := domain.ParseStreamType(cam)
		if err != nil {
			log.Warn().Str("module", "app.coordinator").Str("camera", cam).Msg("unknown camera stream ignored")
			continue
		}
		p.MarkStream(st)
	}

	sessionID := domain.SessionID(ev.SessionID)
	sess := core.NewSession(p, conn)

	var res core.JoinResult
	joined := false
	for i := 0; i < joinAttempts && !joined; i++ {
		room := c.Rooms.GetOrCreate(sessionID)
		res, joined = room.Join(sess)
	}
	if !joined {
		log.Warn().Str("module", "app.coordinator").Str("room", string(sessionID)).
			Str("conn", string(id)).Msg("join lost race with stopping room")
		c.sendError(conn, "join_failed")
		return
	}

	c.Conns.SetRoom(id, sessionID)
	if res.Replaced != "" {
		c.Links.DropConn(res.Replaced)
	}
	metricParticipants.Inc()
	metricRooms.Set(float64(c.Rooms.Len()))

	frame, err := protocol.Encode(&res.State)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("encode room state")
		return
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		log.Warn().Err(err).Str("module", "app.coordinator").Str("conn", string(id)).Msg("snapshot send failed")
	}
}

func (c *Coordinator) leave(id domain.ConnID, ev *protocol.Leave) {
	room, ok := c.room(ev.SessionID, ev.Name())
	if !ok {
		return
	}
	room.Leave(id)
}

func (c *Coordinator) end(id domain.ConnID, ev *protocol.End) {
	room, ok := c.room(ev.SessionID, ev.Name())
	if !ok {
		return
	}
	room.End(id, ev.Reason)
}

func (c *Coordinator) relay(id domain.ConnID, kind core.RelayKind, sessionID, to, streamType string, out *protocol.SignalRelay) {
	st, err := domain.ParseStreamType(streamType)
	if err != nil {
		log.Warn().Str("module", "app.coordinator").Str("stream", streamType).
			Str("conn", string(id)).Msg("relay with unknown stream type dropped")
		return
	}
	room, ok := c.room(sessionID, out.Type)
	if !ok {
		metricRelayMisses.Inc()
		return
	}
	frame, err := protocol.Encode(out)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("encode relay")
		return
	}

	target := domain.ConnID(to)
	if !room.Relay(kind, id, target, st, core.Frame(frame)) {
		metricRelayMisses.Inc()
		return
	}
	metricRelays.WithLabelValues(string(st)).Inc()

	switch kind {
	case core.RelayOffer:
		c.Links.Track(id, target, st)
	case core.RelayAnswer:
		// The answer travels opposite to the offer, so the link key is
		// (target=offerer, id=answerer).
		c.Links.Confirm(target, id, st)
	}
}

func (c *Coordinator) startScreenShare(id domain.ConnID, ev *protocol.StartScreenShare) {
	st, err := domain.ParseStreamType(ev.StreamType)
	if err != nil {
		// Older clients omit the stream type on screen share.
		st = domain.StreamScreen
	}
	room, ok := c.room(ev.SessionID, ev.Name())
	if !ok {
		return
	}
	room.StartScreenShare(id, st)
}

// room resolves a session id, treating a missing room as the stale-reference
// no-op the protocol requires. Late messages racing a teardown land here.
func (c *Coordinator) room(sessionID, event string) (*core.Room, bool) {
	room, ok := c.Rooms.Get(domain.SessionID(sessionID))
	if !ok {
		metricDroppedEvents.Inc()
		log.Warn().Str("module", "app.coordinator").Str("room", sessionID).
			Str("event", event).Msg("event for unknown room dropped")
		return nil, false
	}
	return room, true
}

// onEvict runs from room loops for every member removal; it must only touch
// coordinator-owned maps, never room ops.
func (c *Coordinator) onEvict(room domain.SessionID, conn domain.ConnID) {
	c.Links.DropConn(conn)
	c.Conns.ClearRoom(conn, room)
	metricParticipants.Dec()
	metricRooms.Set(float64(c.Rooms.Len()))
}

func (c *Coordinator) sendError(conn core.SignalConnection, msg string) {
	frame, err := protocol.Encode(&protocol.Error{Type: "error", Error: msg})
	if err != nil {
		return
	}
	_ = conn.TrySend(core.Frame(frame))
}
