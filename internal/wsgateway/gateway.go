package wsgateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/chatbridge"
	"github.com/coldharbor/chatcore/internal/concurrency"
)

// Gateway upgrades HTTP requests to websocket connections and spawns a
// Session for each one against the chat-message broker.
type Gateway struct {
	broker    *broker
	publisher Publisher
	cfg       Config
	log       *logrus.Logger
	upgrader  websocket.Upgrader
	conns     *concurrency.Semaphore
}

// NewGateway builds a Gateway. publisher may be nil, in which case
// connections can receive messages but client "send" frames are rejected.
func NewGateway(br *broker, publisher Publisher, cfg Config, log *logrus.Logger) *Gateway {
	if log == nil {
		log = logrus.New()
	}
	cfg = cfg.withDefaults()
	g := &Gateway{broker: br, publisher: publisher, cfg: cfg, log: log, conns: concurrency.NewSemaphore(cfg.MaxConnections)}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// ActiveConnections returns the number of sessions currently being served.
func (g *Gateway) ActiveConnections() int {
	return g.conns.Current()
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return g.cfg.originAllowed(origin)
}

// HandleConnection is a gin handler that upgrades the request, joins the
// new subscriber to the :roomID path parameter, and runs its Session until
// the connection or subscriber ends. It reads the authenticated user id
// from the gin context key "user_id" (set by internal/authsvc); a request
// with no such key connects anonymously and cannot send messages.
func (g *Gateway) HandleConnection(c *gin.Context) {
	room := chatbridge.RoomID(c.Param("roomID"))
	if room == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room id is required"})
		return
	}
	userID, _ := c.Get("user_id")
	userIDStr, _ := userID.(string)

	if !g.conns.TryAcquire() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many active connections"})
		return
	}
	defer g.conns.Release()

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.WithError(err).Warn("wsgateway: upgrade failed")
		return
	}

	sub, err := g.broker.NewSubscriber(c.Request.Context())
	if err != nil {
		g.log.WithError(err).Warn("wsgateway: failed to create subscriber")
		conn.Close()
		return
	}

	Serve(c.Request.Context(), conn, g.broker, sub, g.publisher, userIDStr, room, g.cfg, g.log)
}
