package core

import (
	"github.com/hireloop/liveroom/internal/domain"
	"github.com/hireloop/liveroom/internal/protocol"
)

// Authorized is the single role gate consulted before any state mutation.
// Question selection and timer control are recruiter-only; everything else
// is open to any participant.
func Authorized(role domain.Role, event string) bool {
	switch event {
	case protocol.EvSelectQuestion, protocol.EvTimerControl:
		return role == domain.RoleRecruiter
	}
	return true
}

// EchoToSender reports whether an event's broadcast includes the sender.
// Question and timer updates echo so the acting recruiter resyncs from the
// same message as everyone else; screen-share lifecycle notices echo so the
// sharer sees its own state confirmed. Code, cursor and whiteboard traffic
// never echoes: the sender already applied the change locally.
func EchoToSender(event string) bool {
	switch event {
	case protocol.EvSelectQuestion, protocol.EvTimerControl,
		protocol.EvStartScreenShare, protocol.EvStopScreenShare, protocol.EvEnd:
		return true
	}
	return false
}
