// Package pubsub implements a generic, in-process, topic-oriented publish/
// subscribe broker. Many subscribers can receive a fan-out stream of
// messages keyed by topic, with per-topic reference counting, per-subscriber
// backpressure and lag reporting, and explicit subscription-event callbacks
// so a caller can lazily open and close the upstream resources that feed a
// topic.
//
// All topic and subscriber bookkeeping happens inside one goroutine (the
// Driver), so none of it needs a lock; besides it, the broker runs one
// funnel goroutine per (subscriber, topic) pair held, each forwarding that
// topic's ring into the subscriber's inbox. Publish is the one operation callable concurrently from any
// goroutine; it takes a read lock only long enough to look up the topic's
// broadcaster.
package pubsub
