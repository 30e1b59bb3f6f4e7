package chatbridge

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/coldharbor/chatcore/internal/pubsub"
	"github.com/coldharbor/chatcore/internal/telemetry"
)

// Start wires a chat-message bridge to pool and dsn and returns the broker
// handle callers publish messages through and subscribe rooms on, plus a
// channel that receives at most one fatal error before closing: a
// notification that cannot be handled (its payload fails to parse, or its
// body cannot be fetched by id), or an error that ends the broker's
// driver. A transient notification
// disconnect is never sent on this channel — reconnecting and replaying is
// the bridge's normal recovery path, not a failure.
func Start(ctx context.Context, pool *pgxpool.Pool, dsn string, log *logrus.Logger) (*pubsub.BrokerHandle[RoomID, *ChatMessage, *ChatContext], <-chan error) {
	return StartWithTracer(ctx, pool, dsn, log, nil)
}

// StartWithTracer is Start with an optional Tracer that spans every
// reactor callback and notification dispatch; a nil tracer disables
// tracing, the same as Start.
func StartWithTracer(ctx context.Context, pool *pgxpool.Pool, dsn string, log *logrus.Logger, tracer *telemetry.Tracer) (*pubsub.BrokerHandle[RoomID, *ChatMessage, *ChatContext], <-chan error) {
	repo := NewPostgresRepository(pool)
	listener := NewPQListener(dsn, 2*time.Second, time.Minute, log)
	return StartWithDeps(ctx, repo, listener, log, tracer)
}

// StartWithDeps is Start with its Repository, Listener, and Tracer
// injected, used directly by tests to drive the reconnect-replay scenario
// without a real database. Pass a nil tracer to disable tracing.
func StartWithDeps(ctx context.Context, repo Repository, listener Listener, log *logrus.Logger, tracer *telemetry.Tracer) (*pubsub.BrokerHandle[RoomID, *ChatMessage, *ChatContext], <-chan error) {
	handle, driver := pubsub.NewBrokerWithOptions[RoomID, *ChatMessage, *ChatContext](pubsub.Options{Tracer: tracer})
	reactor := newBridgeReactor(repo, listener, handle.Publish, log, tracer)

	driverCtx, cancelDriver := context.WithCancel(ctx)

	errCh := make(chan error, 1)
	go run(ctx, cancelDriver, driverCtx, driver, reactor, listener, log, errCh)

	return handle, errCh
}

// run implements the bridge's main loop: race the broker's driver against
// the notification stream until ctx is cancelled. driverCtx is a child of
// ctx that run can also cancel on its own, independent of the caller —
// handleNotification failing to parse a database row is fatal per the
// bridge's error-propagation policy, and the only way to end the broker
// instance from here is to stop the driver's Finish loop, which tears the
// broker down the same way a caller cancellation would.
func run(ctx context.Context, cancelDriver context.CancelFunc, driverCtx context.Context, driver *pubsub.Driver[RoomID, *ChatMessage, *ChatContext], reactor *bridgeReactor, listener Listener, log *logrus.Logger, errCh chan<- error) {
	defer close(errCh)
	defer cancelDriver()

	driverDone := make(chan error, 1)
	go func() { driverDone <- driver.Finish(driverCtx, reactor) }()

	for {
		select {
		case <-ctx.Done():
			_ = listener.Close()
			<-driverDone
			return

		case err := <-driverDone:
			_ = listener.Close()
			if err != nil && ctx.Err() == nil {
				errCh <- err
			}
			return

		case n, ok := <-listener.Notify():
			if !ok {
				<-driverDone
				return
			}
			if n == nil {
				// pq.Listener sends nil on reconnect: the connection dropped
				// and came back, so every room it still watches may have
				// missed notifications in between.
				if err := reactor.handleReconnect(ctx); err != nil {
					log.WithError(err).Error("chatbridge: reconnect replay failed")
				}
				continue
			}
			if err := reactor.handleNotification(ctx, n); err != nil {
				log.WithError(err).WithField("channel", n.Channel).Error("chatbridge: notification handling failed, ending bridge")
				_ = listener.Close()
				cancelDriver()
				<-driverDone
				errCh <- err
				return
			}
		}
	}
}
