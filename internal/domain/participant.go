// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUserNameLen = 64

var (
	ErrUserNameTooLong  = errors.New("user name too long")
	ErrUserNameEmpty    = errors.New("user name empty")
	ErrUnknownRole      = errors.New("unknown role")
	ErrParticipantEmpty = errors.New("participant id empty")
)

type (
	// ConnID is the transport-level connection identifier. It is ephemeral:
	// a reconnect produces a new ConnID.
	ConnID string

	// ParticipantID is the stable identity for the whole interview, issued by
	// the join API before the socket connects. It survives reconnects.
	ParticipantID string
)

type Role string

const (
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRecruiter, RoleCandidate:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

// Participant is one member of an interview room.
type Participant struct {
	ConnID        ConnID
	ParticipantID ParticipantID
	UserName      string
	Role          Role

	// ActiveStreams holds the stream types this participant currently offers.
	ActiveStreams map[StreamType]struct{}
}

// NewParticipant validates inputs so adapters never build raw literals.
func NewParticipant(conn ConnID, pid ParticipantID, userName string, role Role) (*Participant, error) {
	if pid == "" {
		return nil, ErrParticipantEmpty
	}
	if userName == "" {
		return nil, ErrUserNameEmpty
	}
	if len(userName) > MaxUserNameLen {
		return nil, ErrUserNameTooLong
	}
	return &Participant{
		ConnID:        conn,
		ParticipantID: pid,
		UserName:      userName,
		Role:          role,
		ActiveStreams: make(map[StreamType]struct{}),
	}, nil
}

func (p *Participant) MarkStream(st StreamType) {
	if p.ActiveStreams == nil {
		p.ActiveStreams = make(map[StreamType]struct{})
	}
	p.ActiveStreams[st] = struct{}{}
}

func (p *Participant) UnmarkStream(st StreamType) {
	delete(p.ActiveStreams, st)
}

func (p *Participant) Streams() []StreamType {
	out := make([]StreamType, 0, len(p.ActiveStreams))
	for _, st := range StreamTypes {
		if _, ok := p.ActiveStreams[st]; ok {
			out = append(out, st)
		}
	}
	return out
}
