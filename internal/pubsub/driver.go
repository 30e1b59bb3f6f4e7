package pubsub

import (
	"context"
	"fmt"
)

// Driver owns the broker's single control goroutine. Nothing about topic or
// subscriber bookkeeping is safe to touch outside Finish; every
// BrokerHandle and Subscriber operation instead sends a control message and
// awaits its reply.
//
// Finish implements the two-phase await/dispatch loop the spec calls for:
// awaiting the next control message (or shutdown) is cancel-safe — when
// ctx.Done is the case selected, no message has been consumed — but once a
// message is selected, dispatching it runs to completion uninterrupted by
// ctx, since reactor callbacks and bookkeeping updates must not be left
// half-applied.
type Driver[T comparable, M any, C any] struct {
	b *broker[T, M, C]
}

// Finish runs the control loop until ctx is cancelled, the control channel
// is closed, or reactor returns a Fatal error, whichever happens first. On
// any exit it releases every live subscriber's topics, calling
// reactor.OnUnsubscribe for each one still held.
func (d *Driver[T, M, C]) Finish(ctx context.Context, reactor Reactor[T, C]) error {
	var exitErr error
	closed := false
	for exitErr == nil && !closed {
		select {
		case <-ctx.Done():
			exitErr = ctx.Err()
		case msg, ok := <-d.b.ctrl:
			if !ok {
				closed = true
				break
			}
			exitErr = d.dispatch(ctx, reactor, msg)
		case <-d.b.destroy.ready:
			for _, id := range d.b.destroy.drain() {
				err := d.b.dispatchDestroySubscriber(context.Background(), reactor, id)
				if fe, isFatal := asFatal(err); isFatal {
					exitErr = fe
					break
				}
			}
		}
	}
	d.b.shutdown(context.Background(), reactor)
	return exitErr
}

func (d *Driver[T, M, C]) dispatch(ctx context.Context, reactor Reactor[T, C], msg any) error {
	switch m := msg.(type) {
	case ctrlCreateSubscriber[T, M]:
		created := d.b.dispatchCreateSubscriber()
		m.reply <- created
		return nil

	case ctrlAddTopic[T, C]:
		spanCtx, span := d.b.opts.Tracer.StartBrokerDispatch(m.ctx, "add_topic", fmt.Sprint(m.topic))
		topicCtx, err := d.b.dispatchAddTopic(spanCtx, reactor, m.subID, m.topic)
		span.End()
		result := addTopicResult[C]{ctx: topicCtx, err: err}
		if fe, isFatal := asFatal(err); isFatal {
			if m.reply != nil {
				m.reply <- result
			}
			return fe
		}
		if m.reply != nil {
			m.reply <- result
		}
		return nil

	case ctrlRemoveTopic[T]:
		spanCtx, span := d.b.opts.Tracer.StartBrokerDispatch(m.ctx, "remove_topic", fmt.Sprint(m.topic))
		err := d.b.dispatchRemoveTopic(spanCtx, reactor, m.subID, m.topic)
		span.End()
		if fe, isFatal := asFatal(err); isFatal {
			sendReply(m.reply, err)
			return fe
		}
		sendReply(m.reply, err)
		return nil
	}
	return nil
}

func sendReply(reply chan<- error, err error) {
	if reply == nil {
		return
	}
	reply <- err
}
