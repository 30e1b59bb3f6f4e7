// Package httpapi wires the chat service's REST surface: signup, login,
// room management, message history, the websocket upgrade, and the
// operational /healthz and /metrics endpoints.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/authsvc"
	"github.com/coldharbor/chatcore/internal/concurrency"
	"github.com/coldharbor/chatcore/internal/database"
	"github.com/coldharbor/chatcore/internal/sessioncache"
	"github.com/coldharbor/chatcore/internal/wsgateway"
)

// UserStore is the slice of database.UserRepository a router needs.
type UserStore interface {
	Create(ctx context.Context, user *database.User) error
	GetByUsername(ctx context.Context, username string) (*database.User, error)
	TouchLastSeen(ctx context.Context, id string) (time.Time, error)
}

// SessionStore is the slice of database.SessionRepository a router needs.
type SessionStore interface {
	Create(ctx context.Context, session *database.UserSession) error
}

// ChatStore is the slice of database.ChatRepository a router needs.
type ChatStore interface {
	CreateRoom(ctx context.Context, room *database.ChatRoom) error
	ListRooms(ctx context.Context, limit, offset int) ([]*database.ChatRoom, int, error)
	MessagesPage(ctx context.Context, roomID string, beforeSeq int64, limit int) ([]*database.ChatMessageRow, error)
}

// HealthChecker abstracts the /healthz database probe so tests can fake it
// without a live Postgres connection.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// SessionCache is the slice of sessioncache.Cache a router needs.
type SessionCache interface {
	PutSession(ctx context.Context, token string, entry sessioncache.SessionEntry, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// NewPoolHealthChecker wraps a Postgres pool for use as a router
// HealthChecker, delegating to database.HealthCheck.
func NewPoolHealthChecker(pool *pgxpool.Pool) HealthChecker {
	return poolHealthChecker{pool: pool}
}

type poolHealthChecker struct {
	pool *pgxpool.Pool
}

func (p poolHealthChecker) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(ctx, p.pool)
}

// Deps collects everything a router needs to serve requests. Cache is
// optional: with nil, login records the session in Postgres only and
// /healthz skips the Redis ping. Requests are authenticated from the JWT
// alone; neither session store is consulted.
type Deps struct {
	Health   HealthChecker
	Auth     *authsvc.Middleware
	Users    UserStore
	Sessions SessionStore
	Chats    ChatStore
	Cache    SessionCache
	Gateway  *wsgateway.Gateway
	Log      *logrus.Logger
	// AuthRateLimit caps signup/login requests per second, server-wide. Zero
	// uses a default of 50/s.
	AuthRateLimit int
}

// NewRouter builds the gin engine serving the chat API. debug controls
// gin's mode; metrics scraping and health checks are always mounted.
func NewRouter(deps Deps, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	h := &handler{deps: deps}

	router.GET("/healthz", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRate := deps.AuthRateLimit
	if authRate <= 0 {
		authRate = 50
	}
	authLimiter := concurrency.NewRateLimiter(authRate)
	router.POST("/signup", rateLimited(authLimiter), h.signup)
	router.POST("/login", rateLimited(authLimiter), h.login)

	authed := router.Group("/")
	authed.Use(deps.Auth.Handler(nil))
	authed.POST("/rooms", h.createRoom)
	authed.GET("/rooms", h.listRooms)
	authed.GET("/rooms/:id/messages", h.listMessages)

	// The websocket upgrade authenticates optionally: an anonymous
	// connection can still receive broadcast messages, it just can't send.
	router.GET("/ws/:roomID", deps.Auth.Optional(nil), deps.Gateway.HandleConnection)

	return router
}

type handler struct {
	deps Deps
}

// rateLimited lets a request wait briefly for rl's token bucket to refill
// (smoothing a short burst) but rejects with 429 once that wait passes
// without a token, instead of queuing behind the full request deadline.
func rateLimited(rl *concurrency.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		defer cancel()
		if err := rl.Acquire(ctx); err != nil {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (h *handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := h.deps.Health.CheckHealth(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if h.deps.Cache != nil {
		if err := h.deps.Cache.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, status)
}
