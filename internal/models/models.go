package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind tags what a stored message represents. Join and leave
// notices are real rows in the messages table so history replay shows
// them; the kind column is what separates them from user messages.
// Kind is assigned server-side, so a client picking a special sender
// name cannot impersonate a system notice.
type MessageKind string

const (
	KindUser  MessageKind = "user"
	KindJoin  MessageKind = "join"
	KindLeave MessageKind = "leave"
)

// Room is a named, password-protected chat channel. Names are unique
// case-insensitively; the check happens at creation time, not via a DB
// constraint, so two racing creates can still both land.
//
// PasswordHash is bcrypt output and must never reach a client — hence
// the json:"-" tag.
type Room struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is one persisted unit of room activity: a user message, a
// join notice, or a leave notice. Rows are immutable once inserted and
// cascade-delete with their room.
//
// Ordering is by (created_at, id). created_at alone has microsecond
// resolution and can collide under load; id breaks the tie because
// both are assigned by the same INSERT.
//
// FileURL is empty for plain text messages. The wire layer normalizes
// an empty FileURL to the literal "none" — clients render the field
// unconditionally.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     uuid.UUID   `json:"room_id"`
	Kind       MessageKind `json:"kind"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	FileURL    string      `json:"file_url"`
	CreatedAt  time.Time   `json:"created_at"`
}
