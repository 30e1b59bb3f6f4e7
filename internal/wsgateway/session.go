package wsgateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/chatbridge"
	"github.com/coldharbor/chatcore/internal/pubsub"
)

type subscriber = pubsub.Subscriber[chatbridge.RoomID, *chatbridge.ChatMessage, *chatbridge.ChatContext]
type broker = pubsub.BrokerHandle[chatbridge.RoomID, *chatbridge.ChatMessage, *chatbridge.ChatContext]

// Session owns one websocket connection and the single pubsub.Subscriber
// backing it. It runs until the connection closes, the subscriber's inbox
// closes (the broker's Driver stopped), or ctx is cancelled.
type Session struct {
	conn      *websocket.Conn
	sub       *subscriber
	broker    *broker
	publisher Publisher
	userID    string
	cfg       Config
	log       *logrus.Logger
}

// Serve runs a session over conn for the given subscriber, joined to room
// at connect time. It blocks until the connection or subscriber ends.
func Serve(ctx context.Context, conn *websocket.Conn, br *broker, sub *subscriber, publisher Publisher, userID string, room chatbridge.RoomID, cfg Config, log *logrus.Logger) {
	if log == nil {
		log = logrus.New()
	}
	s := &Session{conn: conn, sub: sub, broker: br, publisher: publisher, userID: userID, cfg: cfg.withDefaults(), log: log}
	s.run(ctx, room)
}

func (s *Session) run(ctx context.Context, initialRoom chatbridge.RoomID) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.sub.Destroy()
	defer s.conn.Close()

	if _, err := s.sub.AddTopic(ctx, initialRoom); err != nil {
		s.log.WithError(err).WithField("room", initialRoom).Warn("wsgateway: failed to join initial room")
		s.writeError(err.Error())
		return
	}

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readPump(ctx)
	}()

	s.writePump(ctx)
	cancel()
	<-done
}

// readPump parses client frames (join/leave/send) until the connection
// closes or ctx is cancelled.
func (s *Session) readPump(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.writeError("invalid frame: " + err.Error())
			continue
		}
		s.handleClientFrame(ctx, frame)
	}
}

func (s *Session) handleClientFrame(ctx context.Context, frame clientFrame) {
	switch frame.Type {
	case frameJoin:
		if _, err := s.sub.AddTopic(ctx, frame.Room); err != nil {
			s.writeError(err.Error())
			return
		}
		s.writeFrame(serverFrame{Type: frameJoined, Room: frame.Room})
	case frameLeave:
		if err := s.sub.RemoveTopic(ctx, frame.Room); err != nil {
			s.writeError(err.Error())
			return
		}
		s.writeFrame(serverFrame{Type: frameLeft, Room: frame.Room})
	case frameSend:
		if s.publisher == nil || s.userID == "" {
			s.writeError("sending messages is not supported on this connection")
			return
		}
		if err := s.publisher.Publish(ctx, string(frame.Room), s.userID, frame.Body); err != nil {
			s.writeError(err.Error())
		}
	default:
		s.writeError("unknown frame type: " + frame.Type)
	}
}

// writePump drains the subscriber's inbox and forwards deliveries to the
// connection, sending periodic pings, until the inbox closes (the broker
// dropped the subscriber) or ctx is cancelled.
func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case delivery, ok := <-s.sub.Inbox():
			if !ok {
				s.closePublisherDropped()
				return
			}
			s.deliver(delivery)
		}
	}
}

func (s *Session) deliver(delivery pubsub.Delivery[chatbridge.RoomID, *chatbridge.ChatMessage]) {
	if delivery.Envelope.IsLagged() {
		s.writeFrame(serverFrame{Type: frameLagged, Room: delivery.Topic, Count: delivery.Envelope.Lagged})
		return
	}
	s.writeFrame(serverFrame{Type: frameMessage, Room: delivery.Topic, Message: delivery.Envelope.Value})
}

func (s *Session) writeFrame(frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.log.WithError(err).Error("wsgateway: marshal frame")
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.WithError(err).Debug("wsgateway: write frame")
	}
}

func (s *Session) writeError(msg string) {
	s.writeFrame(serverFrame{Type: frameError, Error: msg})
}

// closePublisherDropped sends a close frame with code 1011 (internal
// error), the user-visible signal that the broker's Driver stopped running
// out from under this subscriber.
func (s *Session) closePublisherDropped() {
	deadline := time.Now().Add(s.cfg.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "publisher dropped")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
}
