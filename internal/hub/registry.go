package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the in-memory membership map: which sessions are
// currently "in" which room for broadcast purposes. It owns the
// membership sets exclusively; sessions are referenced, never owned.
//
// Membership is independent of history — history is read from the
// durable store, so an empty room still replays its past messages to
// the next joiner.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Session]struct{}
	byConn map[*Session]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[uuid.UUID]map[*Session]struct{}),
		byConn: make(map[*Session]uuid.UUID),
	}
}

// Join adds a session to a room's membership set, creating the set on
// first join. Set semantics: joining twice with the same session is a
// no-op, never a duplicate.
func (r *Registry) Join(roomID uuid.UUID, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Session]struct{})
		r.rooms[roomID] = members
	}
	members[s] = struct{}{}
	r.byConn[s] = roomID
}

// Leave removes a session from whatever room it is in. A session that
// never joined, or already left, is a no-op. The room's entry is
// dropped when its last member leaves.
func (r *Registry) Leave(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.byConn[s]
	if !ok {
		return
	}
	delete(r.byConn, s)

	members := r.rooms[roomID]
	delete(members, s)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// MembersOf returns a snapshot of the room's current members. The
// copy means callers can iterate and deliver while other sessions join
// or leave concurrently.
func (r *Registry) MembersOf(roomID uuid.UUID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Session, 0, len(r.rooms[roomID]))
	for s := range r.rooms[roomID] {
		members = append(members, s)
	}
	return members
}

// RoomCount returns how many rooms currently have at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
