// Package wsgateway bridges a browser websocket connection to one
// subscriber on the chat-message broker: it owns the connection's read and
// write goroutines and translates pubsub deliveries into JSON frames.
package wsgateway

import "time"

// Config tunes the underlying gorilla/websocket connection and its
// keepalive schedule.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string
	// MaxConnections caps the number of simultaneously open sessions across
	// every room. A request that arrives once the cap is full is rejected
	// with 503 before the websocket handshake begins.
	MaxConnections int
}

// DefaultConfig returns sane keepalive timings: a ping every 54s comfortably
// inside a 60s pong wait, matching the conventional ~0.9x ratio.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingInterval:    54 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
		MaxMessageSize:  512 * 1024,
		AllowedOrigins:  []string{"*"},
		MaxConnections:  10000,
	}
}

func (c Config) withDefaults() Config {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = 1024
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 54 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512 * 1024
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10000
	}
	return c
}

func (c Config) originAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
