package chatbridge

import "time"

// RoomID is the pubsub Topic the bridge's broker is keyed on.
type RoomID string

// ChatMessage is the pubsub Message the bridge publishes: one row from the
// chat_messages table, delivered either straight off a NOTIFY payload or
// fetched by id when the payload omitted the body because it didn't fit.
type ChatMessage struct {
	ID         int64     `json:"id"`
	RoomID     RoomID    `json:"room_id"`
	SequenceID int64     `json:"sequence_id"`
	UserID     string    `json:"user_id"`
	Body       string    `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}

// ChatContext is the C the reactor's OnSubscribe returns: a snapshot of
// where the subscriber is joining the stream, so the caller can decide
// whether to backfill any history older than what the broker will deliver.
type ChatContext struct {
	LastMessageSeqID int64
}

// notification is the shape of a chat_{room} NOTIFY payload. Body is a
// pointer because Postgres omits it entirely when the message was too
// large to fit in a notification (the 8000-byte NOTIFY payload limit).
type notification struct {
	ID         int64   `json:"id"`
	SequenceID int64   `json:"sequence_id"`
	UserID     string  `json:"user_id"`
	Body       *string `json:"message"`
	SentAt     time.Time `json:"sent_at"`
}
