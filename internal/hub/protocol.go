package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/termchat/server/internal/models"
)

// Wire event names. Inbound and outbound frames share one envelope
// shape: {"event": "...", "data": {...}}.
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"

	EventMessageHistory = "message-history"
	EventNewMessage     = "new-message"
	EventError          = "error"
)

// Error codes carried by the error event. The protocol is otherwise
// fire-and-forget; this is the only way a client learns a frame was
// rejected or lost.
const (
	ErrAlreadyJoined = "already-joined"
	ErrNotJoined     = "not-joined"
	ErrInvalidFrame  = "invalid-frame"
	ErrPersistFailed = "persist-failed"
)

type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
}

type sendMessagePayload struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	FileURL    string `json:"fileUrl,omitempty"`
}

// decodeClientFrame splits a raw inbound frame into its event name and
// undecoded payload. Payload decoding is per-event in the session's
// read loop.
func decodeClientFrame(raw []byte) (string, json.RawMessage, error) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("decode frame: missing event name")
	}
	return env.Event, env.Data, nil
}

// WireMessage is the client-facing shape of a stored message. It
// mirrors models.Message except that an empty file URL is replaced by
// the literal "none" — clients render the field unconditionally and
// key off that sentinel.
type WireMessage struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	Kind       string    `json:"kind"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	FileURL    string    `json:"fileUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toWire(m models.Message) WireMessage {
	fileURL := m.FileURL
	if fileURL == "" {
		fileURL = "none"
	}
	return WireMessage{
		ID:         m.ID.String(),
		RoomID:     m.RoomID.String(),
		Kind:       string(m.Kind),
		SenderName: m.SenderName,
		Content:    m.Content,
		FileURL:    fileURL,
		CreatedAt:  m.CreatedAt,
	}
}

type serverEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type historyPayload struct {
	Messages []WireMessage `json:"messages"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encodeHistory(messages []models.Message) []byte {
	wire := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, toWire(m))
	}
	return mustEncode(serverEnvelope{
		Event: EventMessageHistory,
		Data:  historyPayload{Messages: wire},
	})
}

func encodeNewMessage(m models.Message) []byte {
	return mustEncode(serverEnvelope{
		Event: EventNewMessage,
		Data:  toWire(m),
	})
}

func encodeError(code, message string) []byte {
	return mustEncode(serverEnvelope{
		Event: EventError,
		Data:  errorPayload{Code: code, Message: message},
	})
}

// mustEncode panics on marshal failure. The envelope types contain
// only strings, times, and slices of the same — a failure here is a
// programming error, not an input condition.
func mustEncode(env serverEnvelope) []byte {
	raw, err := json.Marshal(env)
	if err != nil {
		panic(fmt.Sprintf("encode %s frame: %v", env.Event, err))
	}
	return raw
}
