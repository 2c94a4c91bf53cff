package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()
	srv := miniredis.RunT(t)
	b, err := NewRedisBroker(Config{URL: "redis://" + srv.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b.(*RedisBroker)
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "patient-registry-sync")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "patient-registry-sync", map[string]string{"origin": "a"}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"origin":"a"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisBrokerSubscriptionEndsOnCancel(t *testing.T) {
	b := newTestBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "sync")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestNewRedisBrokerInvalidURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestNewRedisBrokerUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisBroker(Config{URL: "redis://" + addr}, nil)
	assert.Error(t, err)
}
