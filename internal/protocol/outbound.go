package protocol

import (
	"encoding/json"

	"github.com/hireloop/liveroom/internal/domain"
)

// ParticipantInfo is the read-only roster view sent to clients.
type ParticipantInfo struct {
	SocketID      string   `json:"socketId"`
	ParticipantID string   `json:"participantId"`
	UserName      string   `json:"userName"`
	Role          string   `json:"role"`
	ActiveStreams []string `json:"activeStreams"`
}

// RoomState is the full snapshot replied to a joining connection. A client
// resynchronizes from this alone, never from an event replay log.
type RoomState struct {
	Type             string            `json:"type"`
	Participants     []ParticipantInfo `json:"participants"`
	CodeState        domain.CodeState  `json:"codeState"`
	ActiveQuestion   json.RawMessage   `json:"activeQuestion,omitempty"`
	Timer            domain.TimerState `json:"timer"`
	WhiteboardLog    []json.RawMessage `json:"whiteboardLog"`
	ScreenShareOwner string            `json:"screenShareOwner,omitempty"`
}

type ParticipantJoined struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

type ParticipantLeft struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId"`
}

// SignalRelay is the outbound shape of offer/answer/candidate events,
// retagged with the originating connection so the receiver can route the
// payload to the right one of its per-(peer, streamType) PeerConnections.
type SignalRelay struct {
	Type       string          `json:"type"`
	From       string          `json:"from"`
	StreamType string          `json:"streamType"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

type CodeUpdated struct {
	Type           string          `json:"type"`
	SocketID       string          `json:"socketId"`
	Code           string          `json:"code"`
	Language       string          `json:"language"`
	CursorPosition json.RawMessage `json:"cursorPosition,omitempty"`
	Selection      json.RawMessage `json:"selection,omitempty"`
}

type CursorMoved struct {
	Type           string          `json:"type"`
	SocketID       string          `json:"socketId"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
	Selection      json.RawMessage `json:"selection,omitempty"`
	UserName       string          `json:"userName"`
}

type QuestionSelected struct {
	Type     string          `json:"type"`
	Question json.RawMessage `json:"question"`
}

type TimerUpdate struct {
	Type     string `json:"type"`
	Action   string `json:"action"`
	Duration int    `json:"duration"`
}

type WhiteboardDrawn struct {
	Type     string          `json:"type"`
	SocketID string          `json:"socketId"`
	DrawData json.RawMessage `json:"drawData"`
}

type WhiteboardCleared struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId"`
}

type ScreenShareStarted struct {
	Type       string `json:"type"`
	SocketID   string `json:"socketId"`
	StreamType string `json:"streamType"`
}

type ScreenShareStopped struct {
	Type     string `json:"type"`
	SocketID string `json:"socketId"`
}

type InterviewEnded struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Encode marshals an outbound payload. Payload structs carry their own type
// tag, so this is a thin wrapper kept for symmetry with Decode.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
