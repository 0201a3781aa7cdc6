package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/liveroom/internal/domain"
	"github.com/hireloop/liveroom/internal/protocol"
)

const opQueueSize = 64

type RelayKind int

const (
	RelayOffer RelayKind = iota
	RelayAnswer
	RelayCandidate
)

// Room is the authoritative state machine for one interview session. A
// single goroutine owns all state; operations arrive on the ops channel
// and are applied strictly in arrival order, which makes per-room ordering
// deterministic without a lock. Fan-out uses TrySend so a slow client can
// never stall the loop.
type Room struct {
	id     domain.SessionID
	policy Policy
	hooks  Hooks

	ops  chan func()
	done chan struct{}

	// Owned by the run loop.
	order            []domain.ConnID
	members          map[domain.ConnID]Session
	code             domain.CodeState
	activeQuestion   json.RawMessage
	timer            domain.TimerState
	whiteboardLog    []json.RawMessage
	screenShareOwner domain.ConnID
	stopped          bool
}

func NewRoom(id domain.SessionID, policy Policy, hooks Hooks) *Room {
	r := &Room{
		id:      id,
		policy:  policy,
		hooks:   hooks,
		ops:     make(chan func(), opQueueSize),
		done:    make(chan struct{}),
		members: make(map[domain.ConnID]Session),
	}
	go r.run()
	return r
}

func (r *Room) ID() domain.SessionID { return r.id }

func (r *Room) Alive() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *Room) run() {
	defer func() {
		if r.hooks.OnStop != nil {
			r.hooks.OnStop(r.id)
		}
	}()
	for {
		select {
		case <-r.done:
			return
		case op := <-r.ops:
			op()
		}
	}
}

// do enqueues an operation. It reports false when the room already stopped;
// callers treat that as a stale-reference no-op.
func (r *Room) do(op func()) bool {
	select {
	case <-r.done:
		return false
	case r.ops <- op:
		return true
	}
}

// await collects an op's reply, preferring a delivered reply over a
// concurrent stop so a completed operation is never reported as failed.
func await[T any](r *Room, reply <-chan T) (T, bool) {
	select {
	case v := <-reply:
		return v, true
	case <-r.done:
		select {
		case v := <-reply:
			return v, true
		default:
			var zero T
			return zero, false
		}
	}
}

// JoinResult carries the snapshot for the joiner plus the stale conn id
// that was displaced when the join was a reconnect.
type JoinResult struct {
	State    protocol.RoomState
	Replaced domain.ConnID
}

func (r *Room) Join(sess Session) (JoinResult, bool) {
	reply := make(chan JoinResult, 1)
	ok := r.do(func() {
		var res JoinResult
		p := sess.Meta()

		// A re-issued join on a live conn replaces the entry in place.
		// Without this the conn id would land in order twice, duplicating
		// every broadcast and leaving a dangling order slot after a remove.
		if _, ok := r.members[p.ConnID]; ok {
			log.Info().Str("module", "core.room").Str("room", string(r.id)).
				Str("conn", string(p.ConnID)).Msg("rejoin on live conn, replacing entry")
			r.removeMember(p.ConnID, false)
		}

		// Same participantId under another conn id means the client
		// reconnected: the stale entry goes, the logical identity stays.
		for _, id := range r.order {
			if r.members[id].Meta().ParticipantID == p.ParticipantID && id != p.ConnID {
				res.Replaced = id
				r.removeMember(id, true)
				break
			}
		}

		r.members[p.ConnID] = sess
		r.order = append(r.order, p.ConnID)
		log.Info().Str("module", "core.room").Str("room", string(r.id)).
			Str("conn", string(p.ConnID)).Str("participant", string(p.ParticipantID)).
			Str("role", string(p.Role)).Msg("participant joined")

		r.broadcastFrom(p.ConnID, &protocol.ParticipantJoined{
			Type:     protocol.EvParticipantJoined,
			SocketID: string(p.ConnID),
			UserName: p.UserName,
			Role:     string(p.Role),
		})
		res.State = r.state()
		reply <- res
	})
	if !ok {
		return JoinResult{}, false
	}
	return await(r, reply)
}

func (r *Room) Leave(id domain.ConnID) bool {
	return r.do(func() {
		if _, ok := r.members[id]; !ok {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("conn", string(id)).Msg("leave for unknown member")
			return
		}
		r.removeMember(id, true)
		if len(r.members) == 0 {
			r.stop()
		}
	})
}

func (r *Room) UpdateCode(from domain.ConnID, ev *protocol.CodeUpdate) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		r.code = domain.CodeState{Code: ev.Code, Language: ev.Language}
		r.publish(from, ev.Name(), &protocol.CodeUpdated{
			Type:           protocol.EvCodeUpdate,
			SocketID:       string(from),
			Code:           ev.Code,
			Language:       ev.Language,
			CursorPosition: ev.CursorPosition,
			Selection:      ev.Selection,
		})
	})
}

func (r *Room) CursorMove(from domain.ConnID, ev *protocol.CursorPosition) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		r.publish(from, ev.Name(), &protocol.CursorMoved{
			Type:           protocol.EvCursorPosition,
			SocketID:       string(from),
			CursorPosition: ev.CursorPosition,
			Selection:      ev.Selection,
			UserName:       ev.UserName,
		})
	})
}

func (r *Room) SelectQuestion(from domain.ConnID, ev *protocol.SelectQuestion) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		r.activeQuestion = ev.Question
		r.publish(from, ev.Name(), &protocol.QuestionSelected{
			Type:     protocol.EvQuestionSelected,
			Question: ev.Question,
		})
	})
}

func (r *Room) ControlTimer(from domain.ConnID, ev *protocol.TimerControl) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		if !domain.ValidTimerAction(ev.Action) {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("action", ev.Action).Msg("invalid timer action dropped")
			return
		}
		switch ev.Action {
		case domain.TimerStart:
			r.timer.Running = true
			if ev.Duration > 0 {
				r.timer.DurationSeconds = ev.Duration
			}
		case domain.TimerPause:
			r.timer.Running = false
		case domain.TimerReset:
			r.timer.Running = false
			r.timer.DurationSeconds = ev.Duration
		}
		r.publish(from, ev.Name(), &protocol.TimerUpdate{
			Type:     protocol.EvTimerUpdate,
			Action:   ev.Action,
			Duration: r.timer.DurationSeconds,
		})
	})
}

func (r *Room) Draw(from domain.ConnID, ev *protocol.WhiteboardDraw) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		r.whiteboardLog = append(r.whiteboardLog, ev.DrawData)
		r.publish(from, ev.Name(), &protocol.WhiteboardDrawn{
			Type:     protocol.EvWhiteboardDraw,
			SocketID: string(from),
			DrawData: ev.DrawData,
		})
	})
}

func (r *Room) ClearBoard(from domain.ConnID, ev *protocol.WhiteboardClear) bool {
	return r.do(func() {
		if !r.memberAllowed(from, ev.Name()) {
			return
		}
		r.whiteboardLog = nil
		r.publish(from, ev.Name(), &protocol.WhiteboardCleared{
			Type:     protocol.EvWhiteboardClear,
			SocketID: string(from),
		})
	})
}

func (r *Room) StartScreenShare(from domain.ConnID, stream domain.StreamType) bool {
	return r.do(func() {
		if !r.memberAllowed(from, protocol.EvStartScreenShare) {
			return
		}
		if r.screenShareOwner != "" && r.screenShareOwner != from {
			// At most one sharer per room is the intended shape, but the
			// observed protocol does not reject a second one.
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("owner", string(r.screenShareOwner)).Str("conn", string(from)).
				Msg("screen share owner replaced")
		}
		r.screenShareOwner = from
		r.members[from].Meta().MarkStream(stream)
		r.publish(from, protocol.EvStartScreenShare, &protocol.ScreenShareStarted{
			Type:       protocol.EvScreenShareStarted,
			SocketID:   string(from),
			StreamType: string(stream),
		})
	})
}

func (r *Room) StopScreenShare(from domain.ConnID) bool {
	return r.do(func() {
		if !r.memberAllowed(from, protocol.EvStopScreenShare) {
			return
		}
		if r.screenShareOwner == from {
			r.screenShareOwner = ""
		}
		r.members[from].Meta().UnmarkStream(domain.StreamScreen)
		r.publish(from, protocol.EvStopScreenShare, &protocol.ScreenShareStopped{
			Type:     protocol.EvScreenShareStopped,
			SocketID: string(from),
		})
	})
}

// Relay delivers one signaling frame to a single member. It reports whether
// the frame reached the target's send queue; false covers a stopped room,
// an absent sender or target, and a saturated target. Relaying is keyed by
// stream type upstream; the room only enforces membership.
func (r *Room) Relay(kind RelayKind, from, to domain.ConnID, stream domain.StreamType, frame Frame) bool {
	reply := make(chan bool, 1)
	ok := r.do(func() {
		sender, ok := r.members[from]
		if !ok {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("conn", string(from)).Msg("relay from non-member")
			reply <- false
			return
		}
		target, ok := r.members[to]
		if !ok {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("to", string(to)).Msg("relay target absent")
			reply <- false
			return
		}
		if kind == RelayOffer {
			sender.Meta().MarkStream(stream)
		}
		if err := target.Signal().TrySend(frame); err != nil {
			r.applyPolicy(PublishResult{Dropped: []domain.ConnID{to}})
			reply <- false
			return
		}
		reply <- true
	})
	if !ok {
		return false
	}
	delivered, ok := await(r, reply)
	return ok && delivered
}

// End broadcasts interview-ended to everyone, evicts the roster and stops
// the room. Any participant may end the interview.
func (r *Room) End(from domain.ConnID, reason string) bool {
	return r.do(func() {
		if !r.memberAllowed(from, protocol.EvEnd) {
			return
		}
		r.broadcastAll(&protocol.InterviewEnded{
			Type:   protocol.EvInterviewEnded,
			Reason: reason,
		})
		for _, id := range append([]domain.ConnID(nil), r.order...) {
			r.removeMember(id, false)
		}
		r.stop()
	})
}

func (r *Room) Snapshot() (protocol.RoomState, bool) {
	reply := make(chan protocol.RoomState, 1)
	if !r.do(func() { reply <- r.state() }) {
		return protocol.RoomState{}, false
	}
	return await(r, reply)
}

func (r *Room) MemberCount() int {
	reply := make(chan int, 1)
	if !r.do(func() { reply <- len(r.members) }) {
		return 0
	}
	n, _ := await(r, reply)
	return n
}

// --- loop-internal helpers below; never call outside the run goroutine ---

func (r *Room) stop() {
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.done)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Msg("room stopped")
}

func (r *Room) removeMember(id domain.ConnID, announce bool) {
	if _, ok := r.members[id]; !ok {
		return
	}
	delete(r.members, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.screenShareOwner == id {
		r.screenShareOwner = ""
	}
	if announce {
		r.broadcastFrom(id, &protocol.ParticipantLeft{
			Type:     protocol.EvParticipantLeft,
			SocketID: string(id),
		})
	}
	if r.hooks.OnEvict != nil {
		r.hooks.OnEvict(r.id, id)
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(id)).Msg("participant removed")
}

// memberAllowed is the router's admission check: sender must be a member
// and pass the role gate. Failures are fail-soft per the protocol contract.
func (r *Room) memberAllowed(from domain.ConnID, event string) bool {
	m, ok := r.members[from]
	if !ok {
		log.Warn().Str("module", "core.room").Str("room", string(r.id)).
			Str("conn", string(from)).Str("event", event).Msg("event from non-member dropped")
		return false
	}
	if !Authorized(m.Meta().Role, event) {
		log.Warn().Str("module", "core.room").Str("room", string(r.id)).
			Str("conn", string(from)).Str("role", string(m.Meta().Role)).
			Str("event", event).Msg("unauthorized event dropped")
		return false
	}
	return true
}

// publish fans out according to the event's echo policy.
func (r *Room) publish(from domain.ConnID, event string, v any) PublishResult {
	if EchoToSender(event) {
		return r.broadcastAll(v)
	}
	return r.broadcastFrom(from, v)
}

func (r *Room) broadcastFrom(from domain.ConnID, v any) PublishResult {
	return r.fanout(v, func(id domain.ConnID) bool { return id != from })
}

func (r *Room) broadcastAll(v any) PublishResult {
	return r.fanout(v, func(domain.ConnID) bool { return true })
}

func (r *Room) fanout(v any, include func(domain.ConnID) bool) PublishResult {
	var res PublishResult
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("encode broadcast")
		return res
	}
	for _, id := range r.order {
		if !include(id) {
			continue
		}
		if err := r.members[id].Signal().TrySend(Frame(b)); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("fanout")
	r.applyPolicy(res)
	return res
}

func (r *Room) applyPolicy(res PublishResult) {
	if r.policy == nil {
		return
	}
	for _, id := range res.Dropped {
		if _, still := r.members[id]; !still {
			continue
		}
		if r.policy.OnBackpressure(r.id, id) == KickMember {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("conn", string(id)).Msg("kicking slow member")
			r.removeMember(id, true)
		}
	}
	if len(r.members) == 0 && len(res.Dropped) > 0 {
		r.stop()
	}
}

func (r *Room) state() protocol.RoomState {
	ps := make([]protocol.ParticipantInfo, 0, len(r.order))
	for _, id := range r.order {
		m := r.members[id].Meta()
		streams := make([]string, 0, len(m.ActiveStreams))
		for _, st := range m.Streams() {
			streams = append(streams, string(st))
		}
		ps = append(ps, protocol.ParticipantInfo{
			SocketID:      string(id),
			ParticipantID: string(m.ParticipantID),
			UserName:      m.UserName,
			Role:          string(m.Role),
			ActiveStreams: streams,
		})
	}
	wb := make([]json.RawMessage, len(r.whiteboardLog))
	copy(wb, r.whiteboardLog)
	return protocol.RoomState{
		Type:             protocol.EvRoomState,
		Participants:     ps,
		CodeState:        r.code,
		ActiveQuestion:   r.activeQuestion,
		Timer:            r.timer,
		WhiteboardLog:    wb,
		ScreenShareOwner: string(r.screenShareOwner),
	}
}
