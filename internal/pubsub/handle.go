package pubsub

import (
	"context"
	"runtime"
)

// BrokerHandle is the shared, cloneable entry point into a running broker.
// Any number of BrokerHandles and Subscribers can call its methods
// concurrently from any goroutine. Subscriber creation, AddTopic and
// RemoveTopic go through the Driver's single control channel; Publish writes
// straight into the topic's ring, and Destroy uses a separate unbounded queue.
type BrokerHandle[T comparable, M any, C any] struct {
	b *broker[T, M, C]
}

// NewBroker creates a broker with default sizing and returns the handle
// callers use to publish and subscribe, plus the Driver that must be run
// (typically via `go driver.Finish(ctx, reactor)`) for any of it to do
// anything. The broker is inert until Finish is running.
func NewBroker[T comparable, M any, C any]() (*BrokerHandle[T, M, C], *Driver[T, M, C]) {
	return NewBrokerWithOptions[T, M, C](DefaultOptions())
}

// NewBrokerWithOptions is NewBroker with explicit channel sizing and an
// optional Metrics instance.
func NewBrokerWithOptions[T comparable, M any, C any](opts Options) (*BrokerHandle[T, M, C], *Driver[T, M, C]) {
	opts = opts.withDefaults()
	b := newBroker[T, M, C](opts)
	return &BrokerHandle[T, M, C]{b: b}, &Driver[T, M, C]{b: b}
}

// Publish delivers msg to every subscriber currently holding topic. It
// returns ErrTopicDoesntExist if nobody currently holds topic; the message
// is simply dropped rather than buffered for a future subscriber.
func (h *BrokerHandle[T, M, C]) Publish(topic T, msg M) error {
	return h.b.publish(topic, msg)
}

// NewSubscriber asks the Driver to create a new subscriber and returns a
// handle to it once the Driver has acknowledged the request. ctx bounds
// only this call, not the subscriber's lifetime.
func (h *BrokerHandle[T, M, C]) NewSubscriber(ctx context.Context) (*Subscriber[T, M, C], error) {
	reply := make(chan subCreated[T, M], 1)
	select {
	case h.b.ctrl <- ctrlCreateSubscriber[T, M]{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case created := <-reply:
		sub := &Subscriber[T, M, C]{
			b:     h.b,
			id:    created.id,
			inbox: created.inbox,
		}
		runtime.SetFinalizer(sub, func(s *Subscriber[T, M, C]) {
			s.Destroy()
		})
		return sub, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscriber is one consumer's handle into a broker: a personal inbox
// multiplexing every topic it currently holds. A Subscriber must be
// destroyed exactly once, either explicitly via Destroy or implicitly when
// it becomes unreachable and the garbage collector runs its finalizer —
// mirroring the spec's requirement that dropping a subscriber always
// eventually releases every topic it held.
type Subscriber[T comparable, M any, C any] struct {
	b     *broker[T, M, C]
	id    uint64
	inbox chan Delivery[T, M]
}

// Recv blocks until a delivery arrives on any topic this subscriber holds,
// ctx is done, or the subscriber has been destroyed (in which case ok is
// false).
func (s *Subscriber[T, M, C]) Recv(ctx context.Context) (Delivery[T, M], bool, error) {
	var zero Delivery[T, M]
	select {
	case d, ok := <-s.inbox:
		return d, ok, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Inbox exposes the subscriber's delivery channel directly, for callers
// that want to select on it alongside other channels (a websocket write
// pump, for instance). The channel closes once the subscriber is destroyed.
func (s *Subscriber[T, M, C]) Inbox() <-chan Delivery[T, M] {
	return s.inbox
}

// AddTopic subscribes to topic, spawning a funnel that begins forwarding
// messages published from this point forward — never history. It blocks
// until the Driver has processed the request and returns the per-
// subscription context the Reactor's OnSubscribe produced: OnSubscribe runs
// on every successful AddTopic, not only the first for a given topic,
// since its return value may carry state specific to this subscriber (the
// chat bridge's "last message visible as of now", for instance).
func (s *Subscriber[T, M, C]) AddTopic(ctx context.Context, topic T) (C, error) {
	var zero C
	reply := make(chan addTopicResult[C], 1)
	msg := ctrlAddTopic[T, C]{subID: s.id, topic: topic, ctx: ctx, reply: reply}
	select {
	case s.b.ctrl <- msg:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case result := <-reply:
		return result.ctx, result.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// RemoveTopic unsubscribes from topic, stopping its funnel immediately. It
// blocks until the Driver has processed the request.
func (s *Subscriber[T, M, C]) RemoveTopic(ctx context.Context, topic T) error {
	reply := make(chan error, 1)
	msg := ctrlRemoveTopic[T]{subID: s.id, topic: topic, ctx: ctx, reply: reply}
	select {
	case s.b.ctrl <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Destroy releases every topic this subscriber holds and closes its inbox.
// It never blocks — the request is queued for the Driver to process on its
// own schedule — and is safe to call more than once or concurrently with
// itself. Call it explicitly rather than relying on the finalizer whenever
// the subscriber's lifetime is known, since finalizers run on no fixed
// schedule.
func (s *Subscriber[T, M, C]) Destroy() {
	runtime.SetFinalizer(s, nil)
	s.b.destroy.push(s.id)
}
