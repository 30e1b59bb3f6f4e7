package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ChatRoom represents a chat room in the system.
type ChatRoom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageRow is a stored chat message as returned to the HTTP API,
// independent of chatbridge.ChatMessage, which carries only what the
// notification bridge needs.
type ChatMessageRow struct {
	ID         int64     `json:"id"`
	RoomID     string    `json:"room_id"`
	SequenceID int64     `json:"sequence_id"`
	UserID     string    `json:"user_id"`
	Body       string    `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}

// ChatRepository handles room and message persistence for the HTTP API:
// room listing/creation and paginated message history. It is distinct from
// chatbridge.Repository, which exists purely to seed and replay the
// notification bridge and should stay free of pagination concerns.
type ChatRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(pool *pgxpool.Pool, log *logrus.Logger) *ChatRepository {
	return &ChatRepository{
		pool: pool,
		log:  log,
	}
}

// CreateRoom creates a new chat room.
func (r *ChatRepository) CreateRoom(ctx context.Context, room *ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, room.ID, room.Name, room.CreatedBy).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat room: %w", err)
	}

	return nil
}

// GetRoom retrieves a chat room by id.
func (r *ChatRepository) GetRoom(ctx context.Context, id string) (*ChatRoom, error) {
	query := `SELECT id, name, created_by, created_at FROM chat_rooms WHERE id = $1`

	room := &ChatRoom{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&room.ID, &room.Name, &room.CreatedBy, &room.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("chat room not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat room: %w", err)
	}

	return room, nil
}

// ListRooms retrieves one limit/offset page of chat rooms, most recently
// created first, together with the total number of rooms.
func (r *ChatRepository) ListRooms(ctx context.Context, limit, offset int) ([]*ChatRoom, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_rooms`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count chat rooms: %w", err)
	}

	query := `
		SELECT id, name, created_by, created_at
		FROM chat_rooms
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list chat rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*ChatRoom{}
	for rows.Next() {
		room := &ChatRoom{}
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedBy, &room.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan chat room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate chat rooms: %w", err)
	}

	return rooms, total, nil
}

// InsertMessage appends a message to roomID, assigning it the next
// sequence id for that room (MAX+1, or 0 for an empty room) in the same
// statement. Two concurrent inserts can compute the same id; the
// UNIQUE (room_id, sequence_id) constraint then rejects the later one,
// which returns an error.
func (r *ChatRepository) InsertMessage(ctx context.Context, roomID, userID, body string) (*ChatMessageRow, error) {
	query := `
		INSERT INTO chat_messages (room_id, sequence_id, user_id, body)
		VALUES ($1, COALESCE((SELECT MAX(sequence_id) + 1 FROM chat_messages WHERE room_id = $1), 0), $2, $3)
		RETURNING id, sequence_id, sent_at
	`

	msg := &ChatMessageRow{RoomID: roomID, UserID: userID, Body: body}
	err := r.pool.QueryRow(ctx, query, roomID, userID, body).Scan(&msg.ID, &msg.SequenceID, &msg.SentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat message: %w", err)
	}

	return msg, nil
}

// MessagesPage retrieves up to limit messages from roomID in descending
// sequence order, strictly before beforeSeq (use -1 for "most
// recent"), the shape a reverse-scrolling chat history view needs.
func (r *ChatRepository) MessagesPage(ctx context.Context, roomID string, beforeSeq int64, limit int) ([]*ChatMessageRow, error) {
	query := `
		SELECT id, room_id, sequence_id, user_id, body, sent_at
		FROM chat_messages
		WHERE room_id = $1 AND ($2 < 0 OR sequence_id < $2)
		ORDER BY sequence_id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, roomID, beforeSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page chat messages for room %s: %w", roomID, err)
	}
	defer rows.Close()

	messages := []*ChatMessageRow{}
	for rows.Next() {
		msg := &ChatMessageRow{}
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SequenceID, &msg.UserID, &msg.Body, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages for room %s: %w", roomID, err)
	}

	return messages, nil
}
