package core

import (
	"testing"
	"time"

	"github.com/hireloop/liveroom/internal/domain"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(nil, nil)

	r1 := reg.GetOrCreate("S1")
	r2 := reg.GetOrCreate("S1")
	if r1 != r2 {
		t.Fatalf("same session id produced two rooms")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.Len())
	}

	if _, ok := reg.Get("S2"); ok {
		t.Fatalf("Get invented a room")
	}
	reg.GetOrCreate("S2")
	if reg.Len() != 2 {
		t.Fatalf("expected 2 rooms, got %d", reg.Len())
	}
}

func TestRegistryRemovesStoppedRoom(t *testing.T) {
	reg := NewRegistry(nil, nil)
	r := reg.GetOrCreate("S1")

	a := conn("ca")
	mustJoin(t, r, a, "pa", "Alice", domain.RoleRecruiter)
	r.Leave(a.ID)
	waitStopped(t, r)

	// Removal runs from the room's stop hook; give it a beat.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := reg.Get("S1"); !ok && reg.Len() == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stopped room not removed, len=%d", reg.Len())
		}
		time.Sleep(time.Millisecond)
	}

	// The same session id gets a fresh room afterwards.
	r2 := reg.GetOrCreate("S1")
	if r2 == r || !r2.Alive() {
		t.Fatalf("stale room resurrected")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(nil, nil)
	r1 := reg.GetOrCreate("S1")
	reg.GetOrCreate("S2")

	a := conn("ca")
	mustJoin(t, r1, a, "pa", "Alice", domain.RoleRecruiter)

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 rooms listed, got %d", len(infos))
	}
	counts := map[domain.SessionID]int{}
	for _, in := range infos {
		counts[in.ID] = in.ParticipantCount
	}
	if counts["S1"] != 1 || counts["S2"] != 0 {
		t.Fatalf("wrong participant counts: %+v", counts)
	}
}
