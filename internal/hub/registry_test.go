package hub

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newRegistrySession() *Session {
	return NewSession(New(&fakeStore{}, nil, 50, zap.NewNop()), nil, zap.NewNop())
}

func TestRegistryJoinIsSetSemantics(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	s := newRegistrySession()

	r.Join(roomID, s)
	r.Join(roomID, s)

	if got := len(r.MembersOf(roomID)); got != 1 {
		t.Errorf("room has %d members after double join, want 1", got)
	}
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	s := newRegistrySession()
	other := newRegistrySession()

	r.Join(roomID, s)
	r.Join(roomID, other)

	r.Leave(s)
	r.Leave(s)

	members := r.MembersOf(roomID)
	if len(members) != 1 || members[0] != other {
		t.Errorf("room members = %v, want only the other session", members)
	}
}

func TestRegistryLeaveWithoutJoinIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Leave(newRegistrySession())

	if got := r.RoomCount(); got != 0 {
		t.Errorf("registry tracks %d rooms, want 0", got)
	}
}

func TestRegistryDropsEmptyRooms(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	s := newRegistrySession()

	r.Join(roomID, s)
	if got := r.RoomCount(); got != 1 {
		t.Fatalf("registry tracks %d rooms, want 1", got)
	}

	r.Leave(s)
	if got := r.RoomCount(); got != 0 {
		t.Errorf("registry tracks %d rooms after last leave, want 0", got)
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	roomID := uuid.New()
	s1 := newRegistrySession()
	s2 := newRegistrySession()

	r.Join(roomID, s1)
	r.Join(roomID, s2)

	snapshot := r.MembersOf(roomID)
	r.Leave(s1)
	r.Leave(s2)

	if len(snapshot) != 2 {
		t.Errorf("snapshot has %d members after leaves, want the original 2", len(snapshot))
	}
}
