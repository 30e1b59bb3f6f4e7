package chatbridge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the bridge's narrow view of chat storage: just enough to
// seed a freshly subscribed chatroom's context and to replay messages after
// a notification disconnect. It exists separately from a general-purpose
// chat repository so the bridge's hot path never carries query concerns it
// doesn't need (pagination, room metadata, and so on live in
// internal/database instead, serving the HTTP API).
type Repository interface {
	// MaxSequenceID returns the highest sequence_id recorded for roomID, or
	// -1 if the room has no messages yet.
	MaxSequenceID(ctx context.Context, roomID RoomID) (int64, error)
	// MessageByID fetches a single message, used when a NOTIFY payload
	// omitted the body because it didn't fit.
	MessageByID(ctx context.Context, id int64) (*ChatMessage, error)
	// MessagesSince streams every message in roomID with sequence_id > since,
	// ordered by sequence_id ascending.
	MessagesSince(ctx context.Context, roomID RoomID, since int64) ([]*ChatMessage, error)
}

// postgresRepository implements Repository directly against pgxpool,
// following the same query style as internal/database's repositories.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps pool as a bridge Repository.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) MaxSequenceID(ctx context.Context, roomID RoomID) (int64, error) {
	const query = `SELECT COALESCE(MAX(sequence_id), -1) FROM chat_messages WHERE room_id = $1`

	var max int64
	if err := r.pool.QueryRow(ctx, query, string(roomID)).Scan(&max); err != nil {
		return 0, fmt.Errorf("chatbridge: max sequence id for room %s: %w", roomID, err)
	}
	return max, nil
}

func (r *postgresRepository) MessageByID(ctx context.Context, id int64) (*ChatMessage, error) {
	const query = `
		SELECT id, room_id, sequence_id, user_id, body, sent_at
		FROM chat_messages
		WHERE id = $1
	`

	msg := &ChatMessage{}
	var roomID string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &roomID, &msg.SequenceID, &msg.UserID, &msg.Body, &msg.SentAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("chatbridge: message %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("chatbridge: fetch message %d: %w", id, err)
	}
	msg.RoomID = RoomID(roomID)
	return msg, nil
}

func (r *postgresRepository) MessagesSince(ctx context.Context, roomID RoomID, since int64) ([]*ChatMessage, error) {
	const query = `
		SELECT id, room_id, sequence_id, user_id, body, sent_at
		FROM chat_messages
		WHERE room_id = $1 AND sequence_id > $2
		ORDER BY sequence_id ASC
	`

	rows, err := r.pool.Query(ctx, query, string(roomID), since)
	if err != nil {
		return nil, fmt.Errorf("chatbridge: messages since %d for room %s: %w", since, roomID, err)
	}
	defer rows.Close()

	var out []*ChatMessage
	for rows.Next() {
		msg := &ChatMessage{}
		var rID string
		if err := rows.Scan(&msg.ID, &rID, &msg.SequenceID, &msg.UserID, &msg.Body, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("chatbridge: scan message row: %w", err)
		}
		msg.RoomID = RoomID(rID)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatbridge: iterate messages since %d for room %s: %w", since, roomID, err)
	}
	return out, nil
}
