// Package hub implements the real-time core: room membership, the
// join/message/leave protocol, and per-room fan-out of persisted chat
// events to connected websocket sessions.
package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/termchat/server/internal/models"
	"github.com/termchat/server/internal/repository"
	"go.uber.org/zap"
)

// PresenceTracker mirrors the advisory occupancy counters. Errors are
// logged and swallowed — presence must never block or fail chat.
type PresenceTracker interface {
	Track(ctx context.Context, roomID uuid.UUID) error
	Forget(ctx context.Context, roomID uuid.UUID) error
}

// Hub owns the protocol sequencing: every event is persisted first and
// fanned out second, and both steps happen under that room's lock, so
// the order every member observes is the order the hub processed the
// events in. Different rooms proceed fully in parallel.
type Hub struct {
	store    repository.MessageRepository
	presence PresenceTracker
	registry *Registry
	logger   *zap.Logger

	historyLimit int

	// roomLocks serializes persist+broadcast per room. The map only
	// grows — a lock for a dead room is 8 bytes, and reclaiming it
	// safely would need refcounting that isn't worth it at this
	// scale.
	lockMu    sync.Mutex
	roomLocks map[uuid.UUID]*sync.Mutex
}

// New constructs a hub. presence may be nil when no Redis is
// configured (tests, local development).
func New(store repository.MessageRepository, presence PresenceTracker, historyLimit int, logger *zap.Logger) *Hub {
	return &Hub{
		store:        store,
		presence:     presence,
		registry:     NewRegistry(),
		logger:       logger,
		historyLimit: historyLimit,
		roomLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// Registry exposes the membership map, mainly for the transport layer
// and tests.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) roomLock(roomID uuid.UUID) *sync.Mutex {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()
	lock, ok := h.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		h.roomLocks[roomID] = lock
	}
	return lock
}

// OnJoin binds the session to (roomID, senderName), replays recent
// history to the joining session only, then persists and broadcasts a
// join notice to the rest of the room — the joiner does not see its
// own join notice.
//
// A session that already joined a room is rejected with an error
// event; it keeps its original binding. Switching rooms means opening
// a new connection.
func (h *Hub) OnJoin(ctx context.Context, s *Session, roomID uuid.UUID, senderName string) {
	if !s.bind(roomID, senderName) {
		s.trySend(encodeError(ErrAlreadyJoined, "session is already in a room"))
		return
	}

	h.registry.Join(roomID, s)

	history, err := h.store.ListRecent(ctx, roomID, h.historyLimit)
	if err != nil {
		h.logger.Error("history replay failed",
			zap.String("room_id", roomID.String()),
			zap.Error(err),
		)
		s.trySend(encodeError(ErrPersistFailed, "could not load history"))
	} else {
		h.deliver(s, encodeHistory(history))
	}

	lock := h.roomLock(roomID)
	lock.Lock()
	notice, err := h.store.Insert(ctx, roomID, models.KindJoin, senderName,
		fmt.Sprintf("%s has joined", senderName), "")
	if err != nil {
		lock.Unlock()
		h.logger.Error("persist join notice failed",
			zap.String("room_id", roomID.String()),
			zap.Error(err),
		)
		s.trySend(encodeError(ErrPersistFailed, "join notice was not saved"))
		return
	}
	h.broadcast(roomID, encodeNewMessage(*notice), s)
	lock.Unlock()

	h.trackPresence(roomID)

	h.logger.Info("session joined room",
		zap.String("session_id", s.ID().String()),
		zap.String("room_id", roomID.String()),
		zap.String("sender", senderName),
	)
}

// OnMessage persists a user message under the session's bound room and
// broadcasts it to every member including the sender — the sender's
// own UI renders from the broadcast, so everyone shares one ordering.
//
// A session that hasn't joined gets an error event and nothing is
// stored. A persistence failure likewise produces an error event to
// the sender; there is no retry.
func (h *Hub) OnMessage(ctx context.Context, s *Session, content, fileURL string) {
	roomID, senderName, joined := s.Joined()
	if !joined {
		s.trySend(encodeError(ErrNotJoined, "join a room before sending"))
		return
	}
	if content == "" && fileURL == "" {
		s.trySend(encodeError(ErrInvalidFrame, "message has no content"))
		return
	}

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := h.store.Insert(ctx, roomID, models.KindUser, senderName, content, fileURL)
	if err != nil {
		h.logger.Error("persist message failed",
			zap.String("room_id", roomID.String()),
			zap.Error(err),
		)
		s.trySend(encodeError(ErrPersistFailed, "message was not saved"))
		return
	}
	h.broadcast(roomID, encodeNewMessage(*msg), nil)
}

// OnDisconnect removes the session from its room and persists and
// broadcasts a leave notice to the remaining members. A session that
// never completed a join leaves no trace. The departing transport is
// already gone, so best-effort is all there is: a failed insert is
// logged and the notice is lost.
func (h *Hub) OnDisconnect(s *Session) {
	roomID, senderName, joined := s.Joined()
	if !joined {
		return
	}

	h.registry.Leave(s)

	ctx := context.Background()
	lock := h.roomLock(roomID)
	lock.Lock()
	notice, err := h.store.Insert(ctx, roomID, models.KindLeave, senderName,
		fmt.Sprintf("%s has left", senderName), "")
	if err != nil {
		lock.Unlock()
		h.logger.Error("persist leave notice failed",
			zap.String("room_id", roomID.String()),
			zap.Error(err),
		)
		h.forgetPresence(roomID)
		return
	}
	h.broadcast(roomID, encodeNewMessage(*notice), nil)
	lock.Unlock()

	h.forgetPresence(roomID)

	h.logger.Info("session left room",
		zap.String("session_id", s.ID().String()),
		zap.String("room_id", roomID.String()),
		zap.String("sender", senderName),
	)
}

// broadcast fans a frame out to the room's current members, skipping
// `except` when set (the join notice skips the joiner).
func (h *Hub) broadcast(roomID uuid.UUID, frame []byte, except *Session) {
	for _, member := range h.registry.MembersOf(roomID) {
		if member == except {
			continue
		}
		h.deliver(member, frame)
	}
}

// deliver queues a frame for one recipient. A recipient whose buffer
// is full is dead or hopelessly slow; it gets dropped from the room so
// it can't stall anyone else. Its read pump will notice the closed
// connection and run the normal disconnect path.
func (h *Hub) deliver(s *Session, frame []byte) {
	if s.trySend(frame) {
		return
	}
	h.logger.Warn("dropping unresponsive session",
		zap.String("session_id", s.ID().String()),
	)
	h.registry.Leave(s)
	s.shutdown()
}

func (h *Hub) trackPresence(roomID uuid.UUID) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Track(context.Background(), roomID); err != nil {
		h.logger.Warn("presence track failed", zap.Error(err))
	}
}

func (h *Hub) forgetPresence(roomID uuid.UUID) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Forget(context.Background(), roomID); err != nil {
		h.logger.Warn("presence forget failed", zap.Error(err))
	}
}
