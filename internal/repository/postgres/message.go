package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/termchat/server/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Insert(ctx context.Context, roomID uuid.UUID, kind models.MessageKind, senderName, content, fileURL string) (*models.Message, error) {
	// file_url is NULL for text-only messages; an empty string would
	// be indistinguishable from "attachment with empty URL".
	var fileArg sql.NullString
	if fileURL != "" {
		fileArg = sql.NullString{String: fileURL, Valid: true}
	}

	query := `
		INSERT INTO messages (id, room_id, kind, sender_name, content, file_url, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, now())
		RETURNING id, room_id, kind, sender_name, content, file_url, created_at`

	var (
		msg     models.Message
		fileOut sql.NullString
	)
	err := s.pool.QueryRow(ctx, query, roomID, string(kind), senderName, content, fileArg).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.Kind,
		&msg.SenderName,
		&msg.Content,
		&fileOut,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.FileURL = fileOut.String
	return &msg, nil
}

func (s *MessageStore) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Message, error) {
	// Two-step ordering: the inner query picks the newest `limit`
	// rows, the outer one flips them back to oldest-first, which is
	// the order clients render history in. Both levels order on
	// (created_at, id) — created_at ties happen under load and id
	// preserves insert order within a tie.
	query := `
		SELECT id, room_id, kind, sender_name, content, file_url, created_at
		FROM (
			SELECT id, room_id, kind, sender_name, content, file_url, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg     models.Message
			fileOut sql.NullString
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.Kind,
			&msg.SenderName,
			&msg.Content,
			&fileOut,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.FileURL = fileOut.String
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
