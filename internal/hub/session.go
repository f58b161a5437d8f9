package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write to one recipient.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the
	// read side gives up on it. pingPeriod must be shorter so a ping
	// goes out before the deadline trips.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxFrameSize = 64 * 1024

	// sendBufferSize is the per-recipient queue between the hub and
	// the write pump. A recipient that lets it fill is dropped rather
	// than allowed to stall delivery to the rest of the room.
	sendBufferSize = 256
)

// Session is one live client connection's protocol state: the
// websocket it arrived on, its send queue, and — once it has joined —
// its room binding and display name.
//
// Lifecycle: created on connect, bound on the first join-room frame,
// torn down on disconnect. Disconnect reaches the hub exactly once no
// matter how the connection dies.
type Session struct {
	id     uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu         sync.Mutex
	closed     bool
	joined     bool
	roomID     uuid.UUID
	senderName string

	disconnectOnce sync.Once
}

// NewSession wraps an upgraded websocket connection. conn may be nil
// in tests; only the pumps touch it.
func NewSession(h *Hub, conn *websocket.Conn, logger *zap.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:     id,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(zap.String("session_id", id.String())),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Joined reports whether the session has completed a join, and if so
// returns its binding.
func (s *Session) Joined() (uuid.UUID, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.senderName, s.joined
}

// bind records the room binding. Returns false if the session already
// joined — rebinding to a second room is rejected, not overwritten.
func (s *Session) bind(roomID uuid.UUID, senderName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joined {
		return false
	}
	s.joined = true
	s.roomID = roomID
	s.senderName = senderName
	return true
}

// trySend queues a frame for the write pump without blocking. It
// returns false when the session is closed or its buffer is full; the
// hub treats either as a dead recipient.
func (s *Session) trySend(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send queue, which stops the write pump. Safe to
// call more than once.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Run services the connection until it drops: the write pump in a
// goroutine, the read pump on the calling goroutine. It returns when
// the connection is gone and the hub has seen the disconnect.
func (s *Session) Run(ctx context.Context) {
	go s.writePump()
	s.readPump(ctx)
}

// disconnect routes the transport's death into the hub exactly once,
// whether the client closed cleanly, the network failed, or the
// server is shutting down.
func (s *Session) disconnect() {
	s.disconnectOnce.Do(func() {
		s.hub.OnDisconnect(s)
		s.shutdown()
	})
}

func (s *Session) readPump(ctx context.Context) {
	defer func() {
		s.disconnect()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		s.dispatch(ctx, raw)
	}
}

// dispatch decodes one inbound frame and routes it to the hub.
// Malformed frames produce an error event rather than killing the
// connection — one bad message shouldn't cost the client its session.
func (s *Session) dispatch(ctx context.Context, raw []byte) {
	event, data, err := decodeClientFrame(raw)
	if err != nil {
		s.trySend(encodeError(ErrInvalidFrame, "unparseable frame"))
		return
	}

	switch event {
	case EventJoinRoom:
		var payload joinRoomPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			s.trySend(encodeError(ErrInvalidFrame, "bad join-room payload"))
			return
		}
		roomID, err := uuid.Parse(payload.RoomID)
		if err != nil || payload.SenderName == "" {
			s.trySend(encodeError(ErrInvalidFrame, "join-room requires roomId and senderName"))
			return
		}
		s.hub.OnJoin(ctx, s, roomID, payload.SenderName)

	case EventSendMessage:
		var payload sendMessagePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			s.trySend(encodeError(ErrInvalidFrame, "bad send-message payload"))
			return
		}
		// roomId and senderName also ride on this frame for
		// compatibility, but the hub only trusts the session's own
		// binding.
		s.hub.OnMessage(ctx, s, payload.Content, payload.FileURL)

	default:
		s.trySend(encodeError(ErrInvalidFrame, "unknown event: "+event))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
