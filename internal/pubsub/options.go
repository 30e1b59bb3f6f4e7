package pubsub

import "github.com/coldharbor/chatcore/internal/telemetry"

// Options configures the bounded channels the broker allocates. All three
// default to the values the spec names: 64 for a subscriber's inbox, 32 for
// a topic's broadcast ring, 32 for the broker's control inbox.
type Options struct {
	// SubscriberInboxSize is the capacity of each subscriber's personal
	// delivery queue.
	SubscriberInboxSize int
	// TopicBroadcastSize is the capacity of each topic's broadcast ring
	// buffer, shared by every funnel subscribed to that topic.
	TopicBroadcastSize int
	// ControlInboxSize is the capacity of the broker's control message
	// channel (CreateSubscriber/AddTopic/RemoveTopic).
	ControlInboxSize int
	// Metrics, if non-nil, receives topic/subscriber/lag instrumentation.
	// Construct one with NewMetrics.
	Metrics *Metrics
	// Tracer, if non-nil, spans every control-loop dispatch. A nil Tracer
	// (the default) disables tracing at zero cost beyond the nil check.
	Tracer *telemetry.Tracer
}

// DefaultOptions returns the spec's default sizing: 64 / 32 / 32.
func DefaultOptions() Options {
	return Options{
		SubscriberInboxSize: 64,
		TopicBroadcastSize:  32,
		ControlInboxSize:    32,
	}
}

func (o Options) withDefaults() Options {
	if o.SubscriberInboxSize <= 0 {
		o.SubscriberInboxSize = 64
	}
	if o.TopicBroadcastSize <= 0 {
		o.TopicBroadcastSize = 32
	}
	if o.ControlInboxSize <= 0 {
		o.ControlInboxSize = 32
	}
	return o
}
