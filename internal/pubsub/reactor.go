package pubsub

import "context"

// Reactor reacts to subscription lifecycle events for a single broker. The
// Driver calls OnSubscribe on every AddTopic, including when other
// subscribers already hold the topic, and OnUnsubscribe when the last
// subscriber holding a topic removes it (or is destroyed while still holding
// it). The C that OnSubscribe returns goes back to that one AddTopic caller.
//
// An OnSubscribe or OnUnsubscribe error is returned to the AddTopic or
// RemoveTopic caller that triggered it, and dropped when a Destroy triggered
// it, unless wrapped with Fatal, in which case it instead terminates the
// Driver's Finish loop.
type Reactor[T comparable, C any] interface {
	OnSubscribe(ctx context.Context, topic T) (C, error)
	OnUnsubscribe(ctx context.Context, topic T) error
}

// ReactorFunc adapts two plain functions into a Reactor, mirroring the
// corpus's habit of offering a func-based adapter alongside every
// interface with a small method set.
type ReactorFunc[T comparable, C any] struct {
	Subscribe   func(ctx context.Context, topic T) (C, error)
	Unsubscribe func(ctx context.Context, topic T) error
}

func (r ReactorFunc[T, C]) OnSubscribe(ctx context.Context, topic T) (C, error) {
	if r.Subscribe == nil {
		var zero C
		return zero, nil
	}
	return r.Subscribe(ctx, topic)
}

func (r ReactorFunc[T, C]) OnUnsubscribe(ctx context.Context, topic T) error {
	if r.Unsubscribe == nil {
		return nil
	}
	return r.Unsubscribe(ctx, topic)
}
