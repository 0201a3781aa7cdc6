package app

import (
	"testing"

	"github.com/hireloop/liveroom/internal/domain"
)

func TestLinkStreamTypeIsolation(t *testing.T) {
	m := NewPeerLinkManager()
	m.Track("ca", "cb", domain.StreamPrimary)
	m.Track("ca", "cb", domain.StreamScreen)

	if !m.Confirm("ca", "cb", domain.StreamPrimary) {
		t.Fatalf("confirm of tracked link failed")
	}
	if st, ok := m.State("ca", "cb", domain.StreamPrimary); !ok || st != LinkEstablished {
		t.Fatalf("primary link not established: %v %v", st, ok)
	}
	// The screen negotiation between the same pair is untouched.
	if st, ok := m.State("ca", "cb", domain.StreamScreen); !ok || st != LinkPending {
		t.Fatalf("screen link affected by primary answer: %v %v", st, ok)
	}
}

func TestConfirmWithoutOffer(t *testing.T) {
	m := NewPeerLinkManager()
	if m.Confirm("ca", "cb", domain.StreamPrimary) {
		t.Fatalf("confirmed a link that was never offered")
	}
	m.Track("ca", "cb", domain.StreamPrimary)
	if m.Confirm("ca", "cb", domain.StreamSecondary) {
		t.Fatalf("confirm matched the wrong stream type")
	}
	if m.Confirm("cb", "ca", domain.StreamPrimary) {
		t.Fatalf("confirm matched the reversed direction")
	}
}

func TestRenegotiationResetsToPending(t *testing.T) {
	m := NewPeerLinkManager()
	m.Track("ca", "cb", domain.StreamPrimary)
	m.Confirm("ca", "cb", domain.StreamPrimary)

	m.Track("ca", "cb", domain.StreamPrimary)
	if st, _ := m.State("ca", "cb", domain.StreamPrimary); st != LinkPending {
		t.Fatalf("re-offer did not reset link: %v", st)
	}
}

func TestDropConnReleasesBothDirections(t *testing.T) {
	m := NewPeerLinkManager()
	m.Track("ca", "cb", domain.StreamPrimary)
	m.Track("cb", "ca", domain.StreamPrimary)
	m.Track("ca", "cb", domain.StreamScreen)
	m.Track("cb", "cc", domain.StreamPrimary)

	if n := m.DropConn("ca"); n != 3 {
		t.Fatalf("expected 3 links released, got %d", n)
	}
	if m.Count() != 1 {
		t.Fatalf("unrelated link dropped, count=%d", m.Count())
	}
	if _, ok := m.State("cb", "cc", domain.StreamPrimary); !ok {
		t.Fatalf("surviving link lost")
	}
}
