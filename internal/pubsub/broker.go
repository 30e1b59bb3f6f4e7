package pubsub

import (
	"context"
	"sync"
)

// topicRecord is the Driver-owned bookkeeping for one topic: its broadcast
// ring and how many live subscribers currently hold it. Unlike an earlier
// draft, no single C is cached here — OnSubscribe runs on every successful
// AddTopic, not just the 0→1 transition, because the context value can
// encode per-subscriber state (the chat bridge's "last sequence id visible
// now", for instance).
type topicRecord[T comparable, M any, C any] struct {
	ring     *ring[M]
	refCount int
}

// subRecord is the Driver-owned bookkeeping for one subscriber: its inbox
// and the cancel funcs of the funnels currently feeding it, one per topic
// held.
type subRecord[T comparable, M any] struct {
	inbox     chan Delivery[T, M]
	topics    map[T]context.CancelFunc
	destroyed bool
	funnels   sync.WaitGroup
}

// broker is the Driver-side state machine. It is never touched from more
// than one goroutine except for the topics map, which Publish also reads
// concurrently — guarded by topicsMu — and the destroy queue and each topic's
// ring, which carry their own mutexes.
type broker[T comparable, M any, C any] struct {
	opts Options

	topicsMu sync.RWMutex
	topics   map[T]*topicRecord[T, M, C]

	subs      map[uint64]*subRecord[T, M]
	nextSubID uint64

	destroy destroyQueue

	ctrl chan any
}

func newBroker[T comparable, M any, C any](opts Options) *broker[T, M, C] {
	return &broker[T, M, C]{
		opts:    opts,
		topics:  make(map[T]*topicRecord[T, M, C]),
		subs:    make(map[uint64]*subRecord[T, M]),
		ctrl:    make(chan any, opts.ControlInboxSize),
		destroy: newDestroyQueue(),
	}
}

type subCreated[T comparable, M any] struct {
	id    uint64
	inbox chan Delivery[T, M]
}

type ctrlCreateSubscriber[T comparable, M any] struct {
	reply chan<- subCreated[T, M]
}

type addTopicResult[C any] struct {
	ctx C
	err error
}

type ctrlAddTopic[T comparable, C any] struct {
	subID uint64
	topic T
	ctx   context.Context
	reply chan<- addTopicResult[C]
}

type ctrlRemoveTopic[T comparable] struct {
	subID uint64
	topic T
	ctx   context.Context
	reply chan<- error
}

// Publish delivers v to every current subscriber of topic. It is safe to
// call from any goroutine concurrently with the Driver and with other
// Publish calls. ErrTopicDoesntExist is returned if no subscriber currently
// holds topic; the message is dropped in that case, exactly as the spec
// requires (publishing has no memory of topics nobody has ever joined).
func (b *broker[T, M, C]) publish(topic T, msg M) error {
	b.topicsMu.RLock()
	rec, ok := b.topics[topic]
	b.topicsMu.RUnlock()
	if !ok {
		return ErrTopicDoesntExist
	}
	b.opts.Metrics.observePublish(topic)
	rec.ring.publish(msg)
	return nil
}

// dispatchCreateSubscriber allocates a new subscriber record and returns its
// id and inbox channel.
func (b *broker[T, M, C]) dispatchCreateSubscriber() subCreated[T, M] {
	id := b.nextSubID
	b.nextSubID++
	inbox := make(chan Delivery[T, M], b.opts.SubscriberInboxSize)
	b.subs[id] = &subRecord[T, M]{
		inbox:  inbox,
		topics: make(map[T]context.CancelFunc),
	}
	b.opts.Metrics.setSubscribers(len(b.subs))
	return subCreated[T, M]{id: id, inbox: inbox}
}

// dispatchAddTopic adds topic to subID's held set. reactor.OnSubscribe runs
// on every call, not only the first for a given topic, since its return
// value may carry per-subscriber state; only the broadcaster itself is
// created once, on the 0→1 transition, while every call spawns a funnel of
// its own for this subscriber. A
// refusal leaves broker state unchanged, per spec; a Fatal-wrapped refusal
// additionally tells the Driver loop to abort.
func (b *broker[T, M, C]) dispatchAddTopic(ctx context.Context, reactor Reactor[T, C], subID uint64, topic T) (C, error) {
	var zero C
	sub, ok := b.subs[subID]
	if !ok {
		return zero, ErrPublisherDropped
	}
	if _, already := sub.topics[topic]; already {
		return zero, ErrTopicAlreadyAdded
	}

	topicCtx, err := reactor.OnSubscribe(ctx, topic)
	if err != nil {
		return zero, err
	}

	b.topicsMu.RLock()
	rec, exists := b.topics[topic]
	b.topicsMu.RUnlock()

	if !exists {
		rec = &topicRecord[T, M, C]{
			ring: newRing[M](b.opts.TopicBroadcastSize),
		}
		b.topicsMu.Lock()
		b.topics[topic] = rec
		b.topicsMu.Unlock()
		b.opts.Metrics.setTopics(len(b.topics))
	}

	rec.refCount++
	// The funnel outlives this call: it must only stop on an explicit
	// RemoveTopic/Destroy, never because the caller's AddTopic context (which
	// bounds only this round trip) happens to expire.
	funnelCtx, cancel := context.WithCancel(context.Background())
	sub.topics[topic] = cancel
	sub.funnels.Add(1)
	go func() {
		defer sub.funnels.Done()
		runFunnel[T, M](funnelCtx, topic, rec.ring, sub.inbox, b.opts.Metrics)
	}()
	return topicCtx, nil
}

// dispatchRemoveTopic removes topic from subID's held set, cancelling its
// funnel. When the last holder releases a topic, its ring is closed and
// reactor.OnUnsubscribe runs.
func (b *broker[T, M, C]) dispatchRemoveTopic(ctx context.Context, reactor Reactor[T, C], subID uint64, topic T) error {
	sub, ok := b.subs[subID]
	if !ok {
		return ErrPublisherDropped
	}
	cancel, held := sub.topics[topic]
	if !held {
		return ErrTopicNotSubscribed
	}
	cancel()
	delete(sub.topics, topic)
	return b.releaseTopic(ctx, reactor, topic)
}

func (b *broker[T, M, C]) releaseTopic(ctx context.Context, reactor Reactor[T, C], topic T) error {
	b.topicsMu.RLock()
	rec, exists := b.topics[topic]
	b.topicsMu.RUnlock()
	if !exists {
		return nil
	}
	rec.refCount--
	if rec.refCount > 0 {
		return nil
	}
	rec.ring.close()
	b.topicsMu.Lock()
	delete(b.topics, topic)
	b.topicsMu.Unlock()
	b.opts.Metrics.setTopics(len(b.topics))
	return reactor.OnUnsubscribe(ctx, topic)
}

// dispatchDestroySubscriber releases every topic subID holds and removes
// the subscriber record. Any OnUnsubscribe error encountered is collected
// and the first one returned; the rest are still attempted so one failing
// topic release never leaks the others.
func (b *broker[T, M, C]) dispatchDestroySubscriber(ctx context.Context, reactor Reactor[T, C], subID uint64) error {
	sub, ok := b.subs[subID]
	if !ok {
		return nil
	}
	if sub.destroyed {
		return nil
	}
	sub.destroyed = true

	var firstErr error
	for topic, cancel := range sub.topics {
		cancel()
		delete(sub.topics, topic)
		if err := b.releaseTopic(ctx, reactor, topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	// Every funnel feeding this subscriber is guaranteed to observe its
	// cancellation promptly (runFunnel selects on ctx.Done alongside every
	// blocking operation), so waiting here is bounded and lets the inbox be
	// closed safely: no goroutine besides this one ever sends on it.
	sub.funnels.Wait()
	close(sub.inbox)
	delete(b.subs, subID)
	b.opts.Metrics.setSubscribers(len(b.subs))
	return firstErr
}

// shutdown tears the whole broker down: every topic is released as if every
// subscriber had been destroyed, in unspecified order. Used when the
// Driver's Finish loop exits.
func (b *broker[T, M, C]) shutdown(ctx context.Context, reactor Reactor[T, C]) {
	for id := range b.subs {
		_ = b.dispatchDestroySubscriber(ctx, reactor, id)
	}
}
