package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/pkg/messaging"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx, "sync")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "sync")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "sync", map[string]string{"at": "1"}))

	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"at":"1"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}

	select {
	case msg := <-other:
		t.Fatalf("unexpected message on other channel: %s", msg)
	default:
	}
}

func TestBrokerUnsubscribeOnCancel(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "sync")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("sync"))

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed")
	}
	assert.Equal(t, 0, b.Subscribers("sync"))
}

func TestBrokerClosed(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), "sync", "x")
	assert.ErrorIs(t, err, messaging.ErrClosed)

	_, err = b.Subscribe(context.Background(), "sync")
	assert.ErrorIs(t, err, messaging.ErrClosed)
}

func TestHandleStops(t *testing.T) {
	b := NewBroker()
	t.Cleanup(func() { b.Close() })

	received := make(chan string, 4)
	stop, err := messaging.Handle(context.Background(), b, "sync", func(msg []byte) {
		received <- string(msg)
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), "sync", "hello"))
	select {
	case msg := <-received:
		assert.Equal(t, `"hello"`, msg)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	stop()
	stop()
	assert.Equal(t, 0, b.Subscribers("sync"))

	require.NoError(t, b.Publish(context.Background(), "sync", "late"))
	select {
	case msg := <-received:
		t.Fatalf("handler called after stop: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
