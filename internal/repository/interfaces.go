package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/termchat/server/internal/models"
)

// Every method takes a context as its first parameter: repositories do
// I/O, and the caller's deadline or cancellation must reach the query.

// RoomRepository defines the contract for room data operations.
type RoomRepository interface {
	// Create inserts a new room and returns it with ID and CreatedAt
	// populated. Name uniqueness is checked by the caller via
	// NameTaken first — there is no DB constraint, so two concurrent
	// creates with differently-cased names can both succeed.
	Create(ctx context.Context, name, passwordHash string) (*models.Room, error)

	// GetByID returns a single room. Returns nil, nil if not found.
	GetByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)

	// GetByName looks a room up case-insensitively.
	// Returns nil, nil if not found.
	GetByName(ctx context.Context, name string) (*models.Room, error)

	// NameTaken reports whether a room already exists under this name,
	// compared case-insensitively.
	NameTaken(ctx context.Context, name string) (bool, error)
}

// MessageRepository handles chat event persistence. It is the only
// durable state the broadcast hub touches; in-memory membership never
// gates what this store returns.
type MessageRepository interface {
	// Insert persists one event and returns it with the
	// server-assigned ID and CreatedAt populated. fileURL may be
	// empty; it is stored as NULL.
	Insert(ctx context.Context, roomID uuid.UUID, kind models.MessageKind, senderName, content, fileURL string) (*models.Message, error)

	// ListRecent returns at most limit of the newest events for a
	// room, reordered oldest-first. Ordering key is (created_at, id)
	// so same-timestamp inserts keep their insert order.
	ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error)
}
