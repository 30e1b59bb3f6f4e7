package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRingRecvInOrder(t *testing.T) {
	r := newRing[int](4)
	ctx := context.Background()

	r.publish(1)
	r.publish(2)

	v, next, lagged, closed, err := r.recv(ctx, 0)
	require.NoError(t, err)
	require.False(t, closed)
	require.Zero(t, lagged)
	require.Equal(t, 1, v)
	require.EqualValues(t, 1, next)

	v, next, lagged, closed, err = r.recv(ctx, next)
	require.NoError(t, err)
	require.False(t, closed)
	require.Zero(t, lagged)
	require.Equal(t, 2, v)
	require.EqualValues(t, 2, next)
}

func TestRingRecvLag(t *testing.T) {
	r := newRing[int](4)
	for i := 0; i < 10; i++ {
		r.publish(i)
	}

	// Reader starting at 0 is 6 items behind the oldest retained (count=10,
	// cap=4, oldest=6).
	_, next, lagged, closed, err := r.recv(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, closed)
	require.EqualValues(t, 6, lagged)
	require.EqualValues(t, 6, next)

	v, next, lagged, closed, err := r.recv(context.Background(), next)
	require.NoError(t, err)
	require.False(t, closed)
	require.Zero(t, lagged)
	require.Equal(t, 6, v)
	require.EqualValues(t, 7, next)
}

func TestRingRecvBlocksUntilPublish(t *testing.T) {
	r := newRing[string](4)
	ctx := context.Background()

	result := make(chan string, 1)
	go func() {
		v, _, lagged, closed, err := r.recv(ctx, 0)
		if err == nil && !closed && lagged == 0 {
			result <- v
		} else {
			result <- "wrong"
		}
	}()

	time.Sleep(10 * time.Millisecond)
	r.publish("hello")

	select {
	case v := <-result:
		require.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("recv did not unblock after publish")
	}
}

func TestRingRecvClosed(t *testing.T) {
	r := newRing[int](4)
	r.publish(1)
	r.close()

	v, next, lagged, closed, err := r.recv(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, closed)
	require.Zero(t, lagged)
	require.Equal(t, 1, v)

	_, _, _, closed, err = r.recv(context.Background(), next)
	require.NoError(t, err)
	require.True(t, closed)
}

func TestRingRecvCancelled(t *testing.T) {
	r := newRing[int](4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, closed, err := r.recv(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, closed)
}
