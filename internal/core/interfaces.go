package core

import "github.com/hireloop/liveroom/internal/domain"

// Frame is an encoded wire message ready to hand to a transport.
type Frame []byte

// SignalConnection abstracts the per-client messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session binds a participant's meta to its transport endpoint.
// This is what a room stores and fans out to.
type Session interface {
	Meta() *domain.Participant
	Signal() SignalConnection
}

type session struct {
	meta *domain.Participant
	conn SignalConnection
}

func NewSession(meta *domain.Participant, conn SignalConnection) Session {
	return &session{meta: meta, conn: conn}
}

func (s *session) Meta() *domain.Participant { return s.meta }
func (s *session) Signal() SignalConnection  { return s.conn }

// PublishResult reports delivery stats/backpressure from a fan-out.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnID
}

type RoomInfo struct {
	ID               domain.SessionID `json:"id"`
	ParticipantCount int              `json:"participant_count"`
}

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackpressure(room domain.SessionID, conn domain.ConnID) BackpressureAction
}

// Hooks let a room notify the coordination layer without importing it.
type Hooks struct {
	// OnStop runs once when the room's loop exits (roster emptied or the
	// interview ended).
	OnStop func(room domain.SessionID)
	// OnEvict runs for every member removal so peer links and connection
	// bindings referencing the conn id can be released.
	OnEvict func(room domain.SessionID, conn domain.ConnID)
}
