package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/termchat/server/internal/models"
)

type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) Create(ctx context.Context, name, passwordHash string) (*models.Room, error) {
	query := `
		INSERT INTO rooms (id, name, password_hash, created_at)
		VALUES (uuid_generate_v4(), $1, $2, now())
		RETURNING id, name, password_hash, created_at`

	var room models.Room
	err := s.pool.QueryRow(ctx, query, name, passwordHash).Scan(
		&room.ID,
		&room.Name,
		&room.PasswordHash,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return &room, nil
}

func (s *RoomStore) GetByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	query := `
		SELECT id, name, password_hash, created_at
		FROM rooms
		WHERE id = $1`

	var room models.Room
	err := s.pool.QueryRow(ctx, query, roomID).Scan(
		&room.ID,
		&room.Name,
		&room.PasswordHash,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

func (s *RoomStore) GetByName(ctx context.Context, name string) (*models.Room, error) {
	query := `
		SELECT id, name, password_hash, created_at
		FROM rooms
		WHERE lower(name) = lower($1)`

	var room models.Room
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&room.ID,
		&room.Name,
		&room.PasswordHash,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by name: %w", err)
	}
	return &room, nil
}

func (s *RoomStore) NameTaken(ctx context.Context, name string) (bool, error) {
	// EXISTS stops at the first match — this runs on every keystroke
	// of the create-room form's availability check.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rooms WHERE lower(name) = lower($1)
		)`

	var taken bool
	if err := s.pool.QueryRow(ctx, query, name).Scan(&taken); err != nil {
		return false, fmt.Errorf("check room name: %w", err)
	}
	return taken, nil
}
