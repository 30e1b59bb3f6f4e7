// Package database provides PostgreSQL access for the chat service.
//
// This package implements the data access layer using pgx/v5 for
// PostgreSQL connectivity, providing repository patterns for all
// persistent data.
//
// # Database Connection
//
// Connect opens a pool and verifies it can reach Postgres before
// returning:
//
//	cfg := config.DatabaseConfig{
//	    Host:     "localhost",
//	    Port:     "5432",
//	    User:     "chatcore",
//	    Password: "secret",
//	    Name:     "chatcore_db",
//	    ConnTimeout: 10 * time.Second, // bounds the startup ping
//	}
//
//	pool, err := database.Connect(ctx, cfg, log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
// Migrate then creates every table the service needs, including the
// trigger that notifies each room's Postgres channel on message insert.
//
// # Available Repositories
//
//   - UserRepository: account creation, lookup, and API key management
//   - SessionRepository: session token issuance and expiry
//   - ChatRepository: chat room and message persistence, with
//     keyset-paginated history reads
//
// # Database Schema
//
// Key tables:
//
//	users           - accounts
//	user_sessions   - session tokens
//	chat_rooms      - chat rooms
//	chat_messages   - chat messages, sequenced per room
//
// # Environment Configuration
//
//	DB_HOST      - PostgreSQL host (default: localhost)
//	DB_PORT      - PostgreSQL port (default: 5432)
//	DB_USER      - Database username
//	DB_PASSWORD  - Database password
//	DB_NAME      - Database name
//	DB_SSLMODE   - SSL mode (disable, require, verify-ca, verify-full)
//
// # Key Files
//
//   - db.go: connection, health check, and migrations
//   - pool_config.go: tuned pgxpool.Config presets
//   - user_repository.go, session_repository.go, chat_repository.go
package database
