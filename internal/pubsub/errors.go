package pubsub

import "errors"

var (
	// ErrTopicDoesntExist is returned by Publish when no subscriber currently
	// holds the given topic.
	ErrTopicDoesntExist = errors.New("pubsub: topic does not exist")

	// ErrTopicAlreadyAdded is returned by Subscriber.AddTopic when the
	// subscriber already holds the topic.
	ErrTopicAlreadyAdded = errors.New("pubsub: topic already added")

	// ErrTopicNotSubscribed is returned by Subscriber.RemoveTopic when the
	// subscriber does not hold the topic.
	ErrTopicNotSubscribed = errors.New("pubsub: topic not subscribed")

	// ErrPublisherDropped is returned by Subscriber.AddTopic and RemoveTopic
	// when the Driver no longer holds a record of the subscriber because it
	// has been destroyed. Once the Driver has stopped, AddTopic and
	// RemoveTopic do not return it: they block until their ctx is done, and
	// Recv reports ok == false once the subscriber's inbox is closed.
	ErrPublisherDropped = errors.New("pubsub: publisher dropped")
)

// FatalError wraps a Reactor error that must terminate the broker's Driver
// loop, as opposed to an ordinary refusal returned to a single AddTopic
// caller. Reactor implementations construct one with Fatal.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "pubsub: fatal reactor error: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks err as a fatal reactor error: it will abort the broker's
// Driver loop rather than being returned as an ordinary AddTopic/OnUnsubscribe
// failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// asFatal reports whether err (or something it wraps) is a *FatalError.
func asFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
