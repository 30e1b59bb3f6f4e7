package chatbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/pubsub"
	"github.com/coldharbor/chatcore/internal/telemetry"
)

// chatroomState is the bridge's per-room bookkeeping: how many live
// subscribers currently hold the room's topic, and the bounded window of
// recently observed sequence ids used to compute a gap-safe replay point.
type chatroomState struct {
	subscribers int
	window      *seqWindow
}

// bridgeReactor is the concrete pubsub.Reactor[RoomID, *ChatContext] that
// turns Postgres LISTEN/NOTIFY into broker publishes. Its OnSubscribe and
// OnUnsubscribe are called serially by the broker's Driver goroutine;
// handleNotification and handleReconnect are called by the bridge's own
// notification-processing goroutine. Those are two different goroutines
// touching the same room map, so — unlike the lock-free broker itself —
// this reactor needs a mutex.
type bridgeReactor struct {
	mu    sync.Mutex
	rooms map[RoomID]*chatroomState

	repo     Repository
	listener Listener
	publish  func(RoomID, *ChatMessage) error
	log      *logrus.Logger
	tracer   *telemetry.Tracer
}

func newBridgeReactor(repo Repository, listener Listener, publish func(RoomID, *ChatMessage) error, log *logrus.Logger, tracer *telemetry.Tracer) *bridgeReactor {
	return &bridgeReactor{
		rooms:    make(map[RoomID]*chatroomState),
		repo:     repo,
		listener: listener,
		publish:  publish,
		log:      log,
		tracer:   tracer,
	}
}

func channelName(room RoomID) string {
	return "chat_" + string(room)
}

// OnSubscribe registers the room's Postgres channel the first time any
// subscriber joins it, fetching the current maximum sequence id only after
// registration so a message committed between the two can't be missed.
// It runs on every successful AddTopic, since the returned context reports
// this particular subscriber's view of "caught up as of now".
func (b *bridgeReactor) OnSubscribe(ctx context.Context, room RoomID) (*ChatContext, error) {
	ctx, span := b.tracer.StartReactorCallback(ctx, "OnSubscribe", string(room))
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.rooms[room]
	if !ok {
		if err := b.listener.Listen(channelName(room)); err != nil {
			return nil, fmt.Errorf("chatbridge: listen on room %s: %w", room, err)
		}
		maxSeq, err := b.repo.MaxSequenceID(ctx, room)
		if err != nil {
			return nil, err
		}
		st = &chatroomState{window: newSeqWindow()}
		st.window.seed(maxSeq)
		b.rooms[room] = st
	}
	st.subscribers++
	return &ChatContext{LastMessageSeqID: st.window.back()}, nil
}

// OnUnsubscribe unregisters the room's channel once its last subscriber
// leaves.
func (b *bridgeReactor) OnUnsubscribe(ctx context.Context, room RoomID) error {
	_, span := b.tracer.StartReactorCallback(ctx, "OnUnsubscribe", string(room))
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.rooms[room]
	if !ok {
		return nil
	}
	st.subscribers--
	if st.subscribers > 0 {
		return nil
	}
	delete(b.rooms, room)
	if err := b.listener.Unlisten(channelName(room)); err != nil {
		return fmt.Errorf("chatbridge: unlisten room %s: %w", room, err)
	}
	return nil
}

// handleNotification decodes one NOTIFY payload, fetching the message body
// by id when the payload omitted it, records the sequence id, and
// publishes. A publish landing on a room nobody holds anymore (a race
// between unsubscribe and a pending notification) is dropped silently.
func (b *bridgeReactor) handleNotification(ctx context.Context, n *pq.Notification) error {
	var payload notification
	if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
		return fmt.Errorf("chatbridge: decode notification payload: %w", err)
	}
	room := roomFromChannel(n.Channel)

	msg, skip, err := b.prepareMessage(ctx, room, payload)
	if err != nil || skip {
		return err
	}

	_, span := b.tracer.StartNotifyDispatch(ctx, string(room), payload.SequenceID)
	defer span.End()

	return b.publishDropOK(room, msg)
}

func (b *bridgeReactor) prepareMessage(ctx context.Context, room RoomID, payload notification) (*ChatMessage, bool, error) {
	b.mu.Lock()
	st, ok := b.rooms[room]
	if !ok {
		b.mu.Unlock()
		return nil, true, nil
	}
	if st.window.has(payload.SequenceID) {
		b.mu.Unlock()
		return nil, true, nil
	}
	b.mu.Unlock()

	body := payload.Body
	if body == nil {
		full, err := b.repo.MessageByID(ctx, payload.ID)
		if err != nil {
			return nil, false, err
		}
		body = &full.Body
	}

	b.mu.Lock()
	st, ok = b.rooms[room]
	if !ok {
		b.mu.Unlock()
		return nil, true, nil
	}
	st.window.record(payload.SequenceID)
	b.mu.Unlock()

	return &ChatMessage{
		ID:         payload.ID,
		RoomID:     room,
		SequenceID: payload.SequenceID,
		UserID:     payload.UserID,
		Body:       *body,
		SentAt:     payload.SentAt,
	}, false, nil
}

// handleReconnect replays every currently-held room after the notification
// connection drops and comes back, per the gap-aware recovery policy.
func (b *bridgeReactor) handleReconnect(ctx context.Context) error {
	b.mu.Lock()
	rooms := make([]RoomID, 0, len(b.rooms))
	for r := range b.rooms {
		rooms = append(rooms, r)
	}
	b.mu.Unlock()

	var firstErr error
	for _, room := range rooms {
		if err := b.replayRoom(ctx, room); err != nil {
			b.log.WithError(err).WithField("room", room).Error("chatbridge: replay failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *bridgeReactor) replayRoom(ctx context.Context, room RoomID) error {
	b.mu.Lock()
	st, ok := b.rooms[room]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	since := st.window.fetchSince()
	b.mu.Unlock()

	// MessagesSince is exclusive, so ask for everything after since-1: the
	// gap id itself must be fetched; ids already in the window are skipped
	// below.
	msgs, err := b.repo.MessagesSince(ctx, room, since-1)
	if err != nil {
		return fmt.Errorf("chatbridge: replay room %s since %d: %w", room, since, err)
	}

	for _, msg := range msgs {
		b.mu.Lock()
		st, ok := b.rooms[room]
		if !ok {
			b.mu.Unlock()
			return nil
		}
		if st.window.has(msg.SequenceID) {
			b.mu.Unlock()
			continue
		}
		st.window.record(msg.SequenceID)
		b.mu.Unlock()

		if err := b.publishDropOK(room, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *bridgeReactor) publishDropOK(room RoomID, msg *ChatMessage) error {
	err := b.publish(room, msg)
	if err != nil && !errors.Is(err, pubsub.ErrTopicDoesntExist) {
		return err
	}
	return nil
}

func roomFromChannel(channel string) RoomID {
	const prefix = "chat_"
	if len(channel) > len(prefix) && channel[:len(prefix)] == prefix {
		return RoomID(channel[len(prefix):])
	}
	return RoomID(channel)
}
