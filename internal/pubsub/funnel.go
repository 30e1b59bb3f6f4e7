package pubsub

import "context"

// runFunnel forwards one topic's broadcast ring into a single subscriber's
// inbox. One funnel goroutine exists per (subscriber, topic) pair currently
// held; it exits when ctx is cancelled (RemoveTopic/DestroySubscriber) or
// the ring is closed and drained (RemoveTopic with no remaining holders, or
// Driver shutdown).
//
// Per spec, a lag report is always delivered to the inbox immediately
// before the delivery that follows it, never merged or dropped — a funnel
// never coalesces two Lagged envelopes into one.
func runFunnel[T comparable, M any](ctx context.Context, topic T, r *ring[M], inbox chan<- Delivery[T, M], metrics *Metrics) {
	read := r.cursorNow()
	for {
		val, next, lagged, closed, err := r.recv(ctx, read)
		if err != nil {
			return
		}
		if closed {
			return
		}
		if lagged > 0 {
			metrics.observeLag(topic, lagged)
			select {
			case inbox <- Delivery[T, M]{Topic: topic, Envelope: Envelope[M]{Lagged: lagged}}:
			case <-ctx.Done():
				return
			}
			read = next
			continue
		}
		select {
		case inbox <- Delivery[T, M]{Topic: topic, Envelope: Envelope[M]{Value: val}}:
		case <-ctx.Done():
			return
		}
		read = next
	}
}
