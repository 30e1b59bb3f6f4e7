package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/config"
)

// Connect opens a pgxpool.Pool against cfg.Database, verifying it can reach
// the server before returning. Pool sizing comes from
// ChatServicePoolOptions, not pgxpool's bare defaults: the chat server's
// connection budget is dominated by short history-page SELECTs and
// single-row message INSERTs, not long transactions, so the pool favors
// more, shorter-lived connections over the few long-lived ones a
// reporting workload would want.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := CreateOptimizedPoolConfig(cfg.DSN(), ChatServicePoolOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.WithField("database", cfg.Name).Info("connected to PostgreSQL")
	return pool, nil
}

// HealthCheck reports whether pool can still reach Postgres within 3s.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return pool.Ping(ctx)
}

// migrations creates every table the chat service needs. Run once at
// startup; every statement is idempotent so re-running is harmless.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		username VARCHAR(255) UNIQUE NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		api_key VARCHAR(255) UNIQUE NOT NULL,
		role VARCHAR(50) DEFAULT 'user',
		last_seen_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_sessions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		session_token VARCHAR(255) UNIQUE NOT NULL,
		context JSONB DEFAULT '{}',
		status VARCHAR(50) DEFAULT 'active',
		request_count INTEGER DEFAULT 0,
		last_activity TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chat_rooms (
		id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_by VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		room_id VARCHAR(255) NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
		sequence_id BIGINT NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		sent_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE (room_id, sequence_id)
	)`,

	`CREATE OR REPLACE FUNCTION notify_chat_message() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify(
			'chat_' || NEW.room_id,
			json_build_object(
				'id', NEW.id,
				'sequence_id', NEW.sequence_id,
				'user_id', NEW.user_id,
				'message', NEW.body,
				'sent_at', NEW.sent_at
			)::text
		);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS chat_messages_notify ON chat_messages`,
	`CREATE TRIGGER chat_messages_notify
		AFTER INSERT ON chat_messages
		FOR EACH ROW EXECUTE FUNCTION notify_chat_message()`,

	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_users_api_key ON users(api_key)`,
	`CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_user_sessions_session_token ON user_sessions(session_token)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_room_sequence ON chat_messages(room_id, sequence_id)`,
}

// Migrate runs every migration statement against pool, in order. The
// trigger notifies each room's Postgres channel on insert, which is what
// the chatbridge package listens for.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
