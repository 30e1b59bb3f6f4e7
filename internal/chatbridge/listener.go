package chatbridge

import (
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Listener is the bridge's view of a Postgres async notification
// connection: enough to join/leave per-chatroom channels and to observe
// the reconnect signal that marks "some notifications may have been
// missed". It is an interface purely so bridge_test.go can drive the
// disconnect-recovery scenario without a real database.
type Listener interface {
	Listen(channel string) error
	Unlisten(channel string) error
	Close() error
	Notify() <-chan *pq.Notification
}

type pqListener struct {
	l *pq.Listener
}

// NewPQListener dials dsn and returns a Listener backed by lib/pq's
// auto-reconnecting connection. minReconnect/maxReconnect bound the
// exponential backoff pq.Listener applies between reconnect attempts.
func NewPQListener(dsn string, minReconnect, maxReconnect time.Duration, log *logrus.Logger) Listener {
	l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).WithField("event", listenerEventName(ev)).Warn("chatbridge: notification listener event")
		}
	})
	return &pqListener{l: l}
}

func (p *pqListener) Listen(channel string) error   { return p.l.Listen(channel) }
func (p *pqListener) Unlisten(channel string) error { return p.l.Unlisten(channel) }
func (p *pqListener) Close() error                  { return p.l.Close() }
func (p *pqListener) Notify() <-chan *pq.Notification {
	return p.l.Notify
}

func listenerEventName(ev pq.ListenerEventType) string {
	switch ev {
	case pq.ListenerEventConnected:
		return "connected"
	case pq.ListenerEventDisconnected:
		return "disconnected"
	case pq.ListenerEventReconnected:
		return "reconnected"
	case pq.ListenerEventConnectionAttemptFailed:
		return "connection_attempt_failed"
	default:
		return "unknown"
	}
}
