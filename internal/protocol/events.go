// Package protocol defines the wire-level event surface of the live
// interview socket. Every message is a flat JSON object carrying a "type"
// tag; Decode maps it onto a closed set of payload structs so handlers can
// dispatch with an exhaustive type switch instead of a string→callback map.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client → server event names.
const (
	EvJoin             = "join-live-interview"
	EvLeave            = "leave-live-interview"
	EvEnd              = "end-live-interview"
	EvOffer            = "webrtc-offer-multi"
	EvAnswer           = "webrtc-answer-multi"
	EvICECandidate     = "webrtc-ice-candidate-multi"
	EvCodeUpdate       = "live-code-update"
	EvCursorPosition   = "cursor-position"
	EvSelectQuestion   = "select-question"
	EvTimerControl     = "timer-control"
	EvWhiteboardDraw   = "whiteboard-draw"
	EvWhiteboardClear  = "whiteboard-clear"
	EvStartScreenShare = "start-screen-share"
	EvStopScreenShare  = "stop-screen-share"
)

// Server → client event names. Offer/answer/candidate keep their inbound
// names, retagged with the sender.
const (
	EvRoomState          = "room-state"
	EvParticipantJoined  = "participant-joined"
	EvParticipantLeft    = "participant-left"
	EvQuestionSelected   = "question-selected"
	EvTimerUpdate        = "timer-update"
	EvScreenShareStarted = "screen-share-started"
	EvScreenShareStopped = "screen-share-stopped"
	EvInterviewEnded     = "interview-ended"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is the closed union of client → server messages.
type Event interface {
	Name() string
}

type Join struct {
	Type          string   `json:"type"`
	SessionID     string   `json:"sessionId"`
	ParticipantID string   `json:"participantId"`
	UserName      string   `json:"userName"`
	Role          string   `json:"role"`
	Cameras       []string `json:"cameras"`
}

type Leave struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type End struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// Offer carries one SDP offer for one (to, streamType) negotiation. The SDP
// payload is opaque to the server: it is relayed verbatim, never parsed.
type Offer struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"sessionId"`
	To         string          `json:"to"`
	StreamType string          `json:"streamType"`
	Offer      json.RawMessage `json:"offer"`
}

type Answer struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"sessionId"`
	To         string          `json:"to"`
	StreamType string          `json:"streamType"`
	Answer     json.RawMessage `json:"answer"`
}

type ICECandidate struct {
	Type       string          `json:"type"`
	SessionID  string          `json:"sessionId"`
	To         string          `json:"to"`
	StreamType string          `json:"streamType"`
	Candidate  json.RawMessage `json:"candidate"`
}

type CodeUpdate struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"sessionId"`
	Code           string          `json:"code"`
	Language       string          `json:"language"`
	CursorPosition json.RawMessage `json:"cursorPosition,omitempty"`
	Selection      json.RawMessage `json:"selection,omitempty"`
}

type CursorPosition struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"sessionId"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
	Selection      json.RawMessage `json:"selection,omitempty"`
	UserName       string          `json:"userName"`
}

type SelectQuestion struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Question  json.RawMessage `json:"question"`
}

type TimerControl struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
	Duration  int    `json:"duration,omitempty"`
}

type WhiteboardDraw struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	DrawData  json.RawMessage `json:"drawData"`
}

type WhiteboardClear struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type StartScreenShare struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	StreamType string `json:"streamType"`
}

type StopScreenShare struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

func (e *Join) Name() string             { return EvJoin }
func (e *Leave) Name() string            { return EvLeave }
func (e *End) Name() string              { return EvEnd }
func (e *Offer) Name() string            { return EvOffer }
func (e *Answer) Name() string           { return EvAnswer }
func (e *ICECandidate) Name() string     { return EvICECandidate }
func (e *CodeUpdate) Name() string       { return EvCodeUpdate }
func (e *CursorPosition) Name() string   { return EvCursorPosition }
func (e *SelectQuestion) Name() string   { return EvSelectQuestion }
func (e *TimerControl) Name() string     { return EvTimerControl }
func (e *WhiteboardDraw) Name() string   { return EvWhiteboardDraw }
func (e *WhiteboardClear) Name() string  { return EvWhiteboardClear }
func (e *StartScreenShare) Name() string { return EvStartScreenShare }
func (e *StopScreenShare) Name() string  { return EvStopScreenShare }

// Decode sniffs the type tag and unmarshals the full message into the
// matching payload struct. An unrecognized tag yields ErrUnknownEvent.
func Decode(data []byte) (Event, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case EvJoin:
		ev = &Join{}
	case EvLeave:
		ev = &Leave{}
	case EvEnd:
		ev = &End{}
	case EvOffer:
		ev = &Offer{}
	case EvAnswer:
		ev = &Answer{}
	case EvICECandidate:
		ev = &ICECandidate{}
	case EvCodeUpdate:
		ev = &CodeUpdate{}
	case EvCursorPosition:
		ev = &CursorPosition{}
	case EvSelectQuestion:
		ev = &SelectQuestion{}
	case EvTimerControl:
		ev = &TimerControl{}
	case EvWhiteboardDraw:
		ev = &WhiteboardDraw{}
	case EvWhiteboardClear:
		ev = &WhiteboardClear{}
	case EvStartScreenShare:
		ev = &StartScreenShare{}
	case EvStopScreenShare:
		ev = &StopScreenShare{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}
